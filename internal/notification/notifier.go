package notification

import (
	"encoding/json"
	"fmt"

	"github.com/Kyz7/requestdesk/internal/events"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notifier turns lifecycle events into in-app notifications.
type Notifier struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{db: db, log: logging.Component("notification")}
}

// Subscribe registers the notifier on bus and returns the unsubscribe func.
func (n *Notifier) Subscribe(bus *events.Bus) func() {
	offs := []func(){
		bus.Subscribe(events.RequestCreated, n.requestCreated),
		bus.Subscribe(events.RequestStatusChanged, n.statusChanged),
		bus.Subscribe(events.McpPostUpdated, n.postUpdated),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func (n *Notifier) requestCreated(e events.Event) {
	r, ok := e.Subject.(*models.Request)
	if !ok || r.AssignedTeamID == nil {
		return
	}

	var userIDs []uint
	n.db.Table(models.TeamUserTable).Where("team_id = ?", *r.AssignedTeamID).Pluck("user_id", &userIDs)

	msg := fmt.Sprintf("New request #%d was assigned to your team", r.ID)
	for _, uid := range userIDs {
		if uid == r.CreatedBy {
			continue
		}
		n.notify(uid, e, msg)
	}
}

func (n *Notifier) statusChanged(e events.Event) {
	sc, ok := e.Subject.(*events.StatusChange)
	if !ok || sc.Request == nil {
		return
	}
	msg := fmt.Sprintf("Request #%d changed from %s to %s", sc.Request.ID, sc.OldStatus, sc.Request.Status)
	n.notify(sc.Request.CreatedBy, e, msg)
}

func (n *Notifier) postUpdated(e events.Event) {
	p, ok := e.Subject.(*models.McpPost)
	if !ok || p.AssignedTo == nil {
		return
	}
	msg := fmt.Sprintf("Post \"%s\" is now %s", p.Title, p.Status)
	n.notify(*p.AssignedTo, e, msg)
}

func (n *Notifier) notify(userID uint, e events.Event, message string) {
	data := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		data[k] = v
	}
	data["message"] = message

	raw, err := json.Marshal(data)
	if err != nil {
		n.log.WithError(err).WithField("event", e.Name).Error("failed to encode notification")
		return
	}

	row := models.Notification{UserID: userID, Type: e.Name, Data: datatypes.JSON(raw)}
	if err := n.db.Create(&row).Error; err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"event":   e.Name,
			"user_id": userID,
		}).Error("failed to store notification")
	}
}
