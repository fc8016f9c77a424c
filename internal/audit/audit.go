package audit

import (
	"encoding/json"
	"time"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionRequestCreated     = "request.created"
	ActionRequestUpdated     = "request.updated"
	ActionRequestDeleted     = "request.deleted"
	ActionRequestBulkUpdated = "request.bulk_updated"
	ActionRequestBulkDeleted = "request.bulk_deleted"
	ActionBusinessCreated    = "business.created"
	ActionBusinessUpdated    = "business.updated"
	ActionBusinessDeleted    = "business.deleted"
	ActionRequestTypeCreated = "request_type.created"
	ActionRequestTypeUpdated = "request_type.updated"
	ActionRequestTypeDeleted = "request_type.deleted"
	ActionTeamCreated        = "team.created"
	ActionTeamUpdated        = "team.updated"
	ActionTeamDeleted        = "team.deleted"
	ActionUserCreated        = "user.created"
	ActionUserUpdated        = "user.updated"
	ActionUserDeleted        = "user.deleted"
	ActionSettingUpdated     = "setting.updated"
	ActionOpmpUpdated        = "opmp.updated"
)

// Entry is one audit record before persistence.
type Entry struct {
	ActorID    *uint
	Action     string
	EntityType string
	EntityID   *uint
	Before     interface{}
	After      interface{}
	IPAddress  string
	UserAgent  string
}

func Record(db *gorm.DB, e Entry) error {
	row := models.AuditLog{
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Before:     toJSON(e.Before),
		After:      toJSON(e.After),
		IPAddress:  e.IPAddress,
		UserAgent:  truncate(e.UserAgent, 500),
		CreatedAt:  time.Now().UTC(),
	}
	return db.Create(&row).Error
}

// Log records an entry with the actor, IP and user agent of c. Failures are logged and
// never returned.
func Log(c *fiber.Ctx, action, entityType string, entityID uint, before, after interface{}) {
	e := Entry{
		Action:     action,
		EntityType: entityType,
		Before:     before,
		After:      after,
	}
	if entityID != 0 {
		id := entityID
		e.EntityID = &id
	}
	if c != nil {
		if uid, ok := c.Locals("user_id").(uint); ok && uid != 0 {
			e.ActorID = &uid
		}
		e.IPAddress = c.IP()
		e.UserAgent = c.Get(fiber.HeaderUserAgent)
	}

	if err := Record(database.DB, e); err != nil {
		logging.Component("audit").WithError(err).WithFields(logrus.Fields{
			"action":      action,
			"entity_type": entityType,
			"entity_id":   entityID,
		}).Error("failed to write audit log")
	}
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	if raw, ok := v.(datatypes.JSON); ok {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
