package mcp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/events"
	"github.com/Kyz7/requestdesk/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("mcp not found")
	ErrPostNotFound    = errors.New("mcp post not found")
	ErrForbidden       = errors.New("unauthorized")
	ErrMonthTaken      = errors.New("mcp already exists for this month")
	ErrInvalidAssignee = errors.New("invalid assignee")
)

type CreatePostInput struct {
	Title       string          `json:"title" validate:"required,max=255"`
	Platform    string          `json:"platform" validate:"omitempty,max=50"`
	Caption     string          `json:"caption"`
	Status      string          `json:"status" validate:"omitempty,oneof=draft in-preparation scheduled published"`
	ScheduledAt *time.Time      `json:"scheduled_at"`
	AssignedTo  *uint           `json:"assigned_to"`
	Metadata    json.RawMessage `json:"metadata"`
}

type UpdatePostInput struct {
	Title         *string         `json:"title" validate:"omitempty,min=1,max=255"`
	Caption       *string         `json:"caption"`
	Status        *string         `json:"status" validate:"omitempty,oneof=draft in-preparation scheduled published"`
	ScheduledAt   *time.Time      `json:"scheduled_at"`
	ClearSchedule bool            `json:"-"`
	Metadata      json.RawMessage `json:"metadata"`
}

// List returns the business's plans, newest month first.
func List(businessID uint, month string, limit, offset int) ([]models.Mcp, int64, error) {
	q := database.DB.Model(&models.Mcp{}).Where("business_id = ?", businessID)
	if month != "" {
		q = q.Where("month = ?", month)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.Mcp
	err := q.Preload("Posts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Posts.AssignedUser").
		Order("month DESC").Limit(limit).Offset(offset).
		Find(&list).Error
	return list, total, err
}

func Create(businessID uint, month string) (*models.Mcp, error) {
	var count int64
	database.DB.Model(&models.Mcp{}).Where("business_id = ? AND month = ?", businessID, month).Count(&count)
	if count > 0 {
		return nil, ErrMonthTaken
	}

	m := models.Mcp{BusinessID: businessID, Month: month, Status: models.McpStatusDraft}
	if err := database.DB.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func checkAssignee(id *uint) error {
	if id == nil {
		return nil
	}
	var u models.User
	if err := database.DB.First(&u, *id).Error; err != nil {
		return ErrInvalidAssignee
	}
	if u.IsClient() {
		return ErrInvalidAssignee
	}
	return nil
}

func metadata(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return datatypes.JSON(raw)
}

func CreatePost(mcpID uint, in CreatePostInput) (*models.McpPost, error) {
	var m models.Mcp
	if err := database.DB.First(&m, mcpID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := checkAssignee(in.AssignedTo); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	post := models.McpPost{
		McpID:       m.ID,
		Title:       in.Title,
		Platform:    in.Platform,
		Caption:     in.Caption,
		Status:      status,
		ScheduledAt: in.ScheduledAt,
		AssignedTo:  in.AssignedTo,
		Metadata:    metadata(in.Metadata),
	}
	if status == models.PostStatusPublished {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}
	if err := database.DB.Create(&post).Error; err != nil {
		return nil, err
	}
	database.DB.Preload("AssignedUser").First(&post, post.ID)
	return &post, nil
}

// UpdatePost is open to the assigned user and admins. A status change publishes
// McpPostUpdated.
func UpdatePost(actor *models.User, id uint, in UpdatePostInput) (*models.McpPost, error) {
	var post models.McpPost
	if err := database.DB.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if !actor.IsAdmin() && (post.AssignedTo == nil || *post.AssignedTo != actor.ID) {
		return nil, ErrForbidden
	}

	oldStatus := post.Status
	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Caption != nil {
		updates["caption"] = *in.Caption
	}
	if in.Status != nil {
		updates["status"] = *in.Status
		if *in.Status == models.PostStatusPublished && oldStatus != models.PostStatusPublished {
			updates["published_at"] = time.Now().UTC()
		}
	}
	if in.ScheduledAt != nil {
		updates["scheduled_at"] = *in.ScheduledAt
	} else if in.ClearSchedule {
		updates["scheduled_at"] = nil
	}
	if len(in.Metadata) > 0 {
		updates["metadata"] = metadata(in.Metadata)
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&post).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	if err := database.DB.Preload("AssignedUser").First(&post, post.ID).Error; err != nil {
		return nil, err
	}

	if post.Status != oldStatus {
		events.Publish(events.NewMcpPostUpdated(&post))
	}
	return &post, nil
}
