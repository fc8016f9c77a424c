package events

import (
	"encoding/json"
	"time"

	"github.com/Kyz7/requestdesk/internal/models"
)

const (
	RequestCreated       = "request.created"
	RequestStatusChanged = "request.status_changed"
	BusinessCreated      = "business.created"
	McpPostUpdated       = "mcp.post.updated"
	FeedbackSubmitted    = "feedback.submitted"
)

// WebhookEvents are forwarded to the automation webhook.
var WebhookEvents = []string{
	RequestCreated,
	RequestStatusChanged,
	BusinessCreated,
	McpPostUpdated,
	FeedbackSubmitted,
}

type StatusChange struct {
	Request   *models.Request
	OldStatus models.RequestStatus
}

func NewRequestCreated(r *models.Request) Event {
	typeName := ""
	if r.RequestType != nil {
		typeName = r.RequestType.Name
	}
	return New(RequestCreated, map[string]interface{}{
		"request_id":   r.ID,
		"business_id":  r.BusinessID,
		"request_type": typeName,
		"images":       ImageURLs(r.FieldValues),
		"created_at":   r.CreatedAt.UTC().Format(time.RFC3339),
	}, r)
}

func NewRequestStatusChanged(r *models.Request, old models.RequestStatus) Event {
	return New(RequestStatusChanged, map[string]interface{}{
		"request_id": r.ID,
		"old_status": string(old),
		"new_status": string(r.Status),
		"updated_at": r.UpdatedAt.UTC().Format(time.RFC3339),
	}, &StatusChange{Request: r, OldStatus: old})
}

func NewBusinessCreated(b *models.Business) Event {
	return New(BusinessCreated, map[string]interface{}{
		"business_id": b.ID,
		"owner_id":    b.OwnerUserID,
		"name":        b.Name,
		"created_at":  b.CreatedAt.UTC().Format(time.RFC3339),
	}, b)
}

func NewMcpPostUpdated(p *models.McpPost) Event {
	return New(McpPostUpdated, map[string]interface{}{
		"post_id":    p.ID,
		"mcp_id":     p.McpID,
		"status":     p.Status,
		"updated_at": p.UpdatedAt.UTC().Format(time.RFC3339),
	}, p)
}

func NewFeedbackSubmitted(f *models.Feedback) Event {
	return New(FeedbackSubmitted, map[string]interface{}{
		"feedback_id": f.ID,
		"user_id":     f.UserID,
		"rating":      f.Rating,
		"category":    f.Category,
		"created_at":  f.CreatedAt.UTC().Format(time.RFC3339),
	}, f)
}

// ImageURLs collects {url} and {urls} values in field order.
func ImageURLs(values []models.RequestFieldValue) []string {
	urls := []string{}
	for _, v := range values {
		if len(v.ValueJSON) == 0 {
			continue
		}
		var shape struct {
			URL  *string  `json:"url"`
			URLs []string `json:"urls"`
		}
		if err := json.Unmarshal(v.ValueJSON, &shape); err != nil {
			continue
		}
		if shape.URL != nil && *shape.URL != "" {
			urls = append(urls, *shape.URL)
		}
		urls = append(urls, shape.URLs...)
	}
	return urls
}
