package team

import (
	"errors"
	"fmt"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("team not found")
	ErrInvalidUser = errors.New("the selected user_ids are invalid")
)

// InUseError blocks deleting a team that still routes work.
type InUseError struct {
	ActiveRequests int64
	DefaultTypes   int64
}

func (e *InUseError) Error() string {
	if e.ActiveRequests > 0 {
		return fmt.Sprintf("Cannot delete team with %d active request(s). Please reassign or complete requests first.", e.ActiveRequests)
	}
	return fmt.Sprintf("Cannot delete team that is default for %d request type(s). Please change default team first.", e.DefaultTypes)
}

// Stats are the request counters shown with a team.
type Stats struct {
	MembersCount           int64 `json:"members_count"`
	RequestsCount          int64 `json:"requests_count"`
	ActiveRequestsCount    int64 `json:"active_requests_count"`
	CompletedRequestsCount int64 `json:"completed_requests_count"`
}

type Detail struct {
	models.Team
	Stats
}

func Find(id uint) (*models.Team, error) {
	var t models.Team
	if err := database.DB.Preload("Members").First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func activeRequests(teamID uint) *gorm.DB {
	return database.DB.Model(&models.Request{}).
		Where("assigned_team_id = ? AND status NOT IN ?", teamID, models.TerminalStatuses())
}

func statsFor(t *models.Team) Stats {
	s := Stats{MembersCount: int64(len(t.Members))}
	database.DB.Model(&models.Request{}).Where("assigned_team_id = ?", t.ID).Count(&s.RequestsCount)
	activeRequests(t.ID).Count(&s.ActiveRequestsCount)
	database.DB.Model(&models.Request{}).
		Where("assigned_team_id = ? AND status = ?", t.ID, models.StatusCompleted).
		Count(&s.CompletedRequestsCount)
	return s
}

func Show(id uint) (*Detail, error) {
	t, err := Find(id)
	if err != nil {
		return nil, err
	}
	return &Detail{Team: *t, Stats: statsFor(t)}, nil
}

func List(limit, offset int) ([]Detail, int64, error) {
	var total int64
	if err := database.DB.Model(&models.Team{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var teams []models.Team
	if err := database.DB.Preload("Members").Order("name ASC").
		Limit(limit).Offset(offset).Find(&teams).Error; err != nil {
		return nil, 0, err
	}

	out := make([]Detail, 0, len(teams))
	for i := range teams {
		out = append(out, Detail{Team: teams[i], Stats: statsFor(&teams[i])})
	}
	return out, total, nil
}

func Create(name, description string, userIDs []uint) (*models.Team, error) {
	members, err := loadUsers(userIDs)
	if err != nil {
		return nil, err
	}

	t := models.Team{Name: name, Description: description}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		if len(members) > 0 {
			return tx.Model(&t).Association("Members").Replace(members)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Find(t.ID)
}

func Update(id uint, name, description *string) (*models.Team, *models.Team, error) {
	before, err := Find(id)
	if err != nil {
		return nil, nil, err
	}

	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) > 0 {
		if err := database.DB.Model(&models.Team{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, nil, err
		}
	}

	after, err := Find(id)
	return before, after, err
}

// Delete refuses while the team has open requests or is a request type default.
func Delete(id uint) (*models.Team, error) {
	t, err := Find(id)
	if err != nil {
		return nil, err
	}

	var active int64
	activeRequests(id).Count(&active)
	if active > 0 {
		return nil, &InUseError{ActiveRequests: active}
	}

	var defaults int64
	database.DB.Model(&models.RequestType{}).Where("default_team_id = ?", id).Count(&defaults)
	if defaults > 0 {
		return nil, &InUseError{DefaultTypes: defaults}
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(t).Association("Members").Clear(); err != nil {
			return err
		}
		return tx.Delete(t).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// AssignUsers replaces the membership with userIDs.
func AssignUsers(id uint, userIDs []uint) (*models.Team, error) {
	t, err := Find(id)
	if err != nil {
		return nil, err
	}

	members, err := loadUsers(userIDs)
	if err != nil {
		return nil, err
	}

	if err := database.DB.Model(t).Association("Members").Replace(members); err != nil {
		return nil, err
	}
	return Find(id)
}

func loadUsers(ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	unique := map[uint]bool{}
	for _, id := range ids {
		unique[id] = true
	}

	var users []models.User
	if err := database.DB.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) != len(unique) {
		return nil, ErrInvalidUser
	}
	return users, nil
}
