package request

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/events"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("request not found")
	ErrForbidden          = errors.New("unauthorized")
	ErrBusinessAccess     = errors.New("unauthorized access to business")
	ErrTypeUnavailable    = errors.New("request type is not available")
	ErrNoValidFields      = errors.New("no valid fields to update")
	ErrStorageUnavailable = errors.New("file storage is not configured")
)

// InputErrors are payload problems outside the dynamic form, keyed by JSON field.
type InputErrors map[string]string

func (e InputErrors) Error() string {
	return fmt.Sprintf("invalid input: %d field(s)", len(e))
}

// UnauthorizedIDsError rejects a bulk action naming every id the caller may not touch.
type UnauthorizedIDsError struct {
	IDs []uint
}

func (e *UnauthorizedIDsError) Error() string {
	return fmt.Sprintf("unauthorized access to %d request(s)", len(e.IDs))
}

// MutableFields are the only request columns the update and bulk paths may write.
var MutableFields = []string{"status", "assigned_user_id", "assigned_team_id", "priority"}

// UpdatableStatuses is every status except "new", which is set only at creation.
func UpdatableStatuses() []models.RequestStatus {
	out := []models.RequestStatus{}
	for _, s := range models.RequestStatuses() {
		if s != models.StatusNew {
			out = append(out, s)
		}
	}
	return out
}

type CreateInput struct {
	RequestTypeID uint
	BusinessID    uint
	Fields        Submission
}

// Create validates the submission, then writes the request, its uploads and field values
// in one transaction. Uploads already written are removed when the transaction fails.
// RequestCreated is published after commit.
func Create(actor *models.User, in CreateInput) (*models.Request, error) {
	inputErrs := InputErrors{}
	if in.RequestTypeID == 0 {
		inputErrs["request_type_id"] = "request_type_id is required"
	}
	if in.BusinessID == 0 {
		inputErrs["business_id"] = "business_id is required"
	}
	if len(inputErrs) > 0 {
		return nil, inputErrs
	}

	var business models.Business
	if err := database.DB.First(&business, in.BusinessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, InputErrors{"business_id": "The selected business_id is invalid"}
		}
		return nil, err
	}
	if !access.HasBusinessAccess(database.DB, actor, business.ID) {
		return nil, ErrBusinessAccess
	}

	var rt models.RequestType
	if err := database.DB.Preload("Fields", models.OrderedFields).First(&rt, in.RequestTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, InputErrors{"request_type_id": "The selected request_type_id is invalid"}
		}
		return nil, err
	}
	if !rt.IsPublished {
		return nil, ErrTypeUnavailable
	}

	if fieldErrs := ValidateFields(rt.Fields, in.Fields); fieldErrs != nil {
		return nil, fieldErrs
	}
	if hasUploads(rt.Fields, in.Fields) && storage.Default == nil {
		return nil, ErrStorageUnavailable
	}

	log := logging.Component("request")
	m := &Materializer{Storage: storage.Default, UploaderID: actor.ID, Log: log}
	now := time.Now().UTC()
	due := DueAt(now, rt.SLAHours)

	req := models.Request{
		RequestTypeID:  rt.ID,
		BusinessID:     business.ID,
		CreatedBy:      actor.ID,
		AssignedTeamID: rt.DefaultTeamID,
		Status:         models.StatusNew,
		Priority:       models.PriorityMedium,
		DueAt:          &due,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&req).Error; err != nil {
			return err
		}
		return m.Materialize(tx, &req, rt.Fields, in.Fields)
	})
	if err != nil {
		if written := m.Written(); len(written) > 0 {
			log.WithError(err).WithField("files", len(written)).Warn("request create rolled back, removing uploads")
		}
		m.Compensate()
		return nil, err
	}

	created, err := Find(req.ID, "RequestType", "Business", "FieldValues")
	if err != nil {
		return nil, err
	}
	events.Publish(events.NewRequestCreated(created))
	return created, nil
}

func hasUploads(fields []models.RequestTypeField, sub Submission) bool {
	for _, f := range fields {
		if (f.IsImageType() || f.Type == models.FieldFile) && len(sub.files(f.FieldKey)) > 0 {
			return true
		}
	}
	return false
}

// Find loads a request with the named preloads.
func Find(id uint, preloads ...string) (*models.Request, error) {
	q := database.DB
	for _, p := range preloads {
		if p == "RequestType.Fields" {
			q = q.Preload(p, models.OrderedFields)
			continue
		}
		q = q.Preload(p)
	}

	var req models.Request
	if err := q.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// Accessible loads a request and applies the access gate. Comments and attachments
// use it for their parent request.
func Accessible(actor *models.User, id uint) (*models.Request, error) {
	req, err := Find(id)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessRequest(database.DB, actor, req) {
		return nil, ErrForbidden
	}
	return req, nil
}

// Detail loads a request with every relation and checks the access gate.
func Detail(actor *models.User, id uint) (*models.Request, error) {
	req, err := Find(id,
		"RequestType.Fields", "Business", "Creator", "AssignedUser", "AssignedTeam", "FieldValues")
	if err != nil {
		return nil, err
	}
	if !access.CanAccessRequest(database.DB, actor, req) {
		return nil, ErrForbidden
	}

	database.DB.Preload("User").
		Where("entity_type = ? AND entity_id = ?", models.EntityRequest, req.ID).
		Order("created_at ASC").Find(&req.Comments)
	database.DB.
		Where("entity_type = ? AND entity_id = ?", models.EntityRequest, req.ID).
		Order("created_at DESC").Find(&req.Attachments)
	for i := range req.Attachments {
		if storage.Default != nil {
			req.Attachments[i].URL = storage.Default.URL(req.Attachments[i].FilePath)
		}
	}
	return req, nil
}

type ListFilter struct {
	BusinessID    uint
	RequestTypeID uint
	Status        string
	Priority      string
	Limit         int
	Offset        int
}

// List returns the requests visible to actor, newest first.
func List(actor *models.User, f ListFilter) ([]models.Request, int64, error) {
	q := database.DB.Model(&models.Request{}).Scopes(access.ScopeRequests(database.DB, actor))
	if f.BusinessID != 0 {
		q = q.Where("requests.business_id = ?", f.BusinessID)
	}
	if f.RequestTypeID != 0 {
		q = q.Where("requests.request_type_id = ?", f.RequestTypeID)
	}
	if f.Status != "" {
		q = q.Where("requests.status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("requests.priority = ?", f.Priority)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reqs []models.Request
	err := q.Preload("RequestType").Preload("Business").Preload("AssignedUser").
		Preload("AssignedTeam").Preload("FieldValues").
		Order("requests.created_at DESC").Order("requests.id DESC").
		Limit(f.Limit).Offset(f.Offset).Find(&reqs).Error
	return reqs, total, err
}

// ParseChanges keeps the mutable keys of raw and validates their values. Unknown keys
// are dropped.
func ParseChanges(raw map[string]interface{}) (map[string]interface{}, error) {
	changes := map[string]interface{}{}
	errs := InputErrors{}

	for _, key := range MutableFields {
		v, ok := raw[key]
		if !ok {
			continue
		}

		switch key {
		case "status":
			s, _ := v.(string)
			if !isUpdatableStatus(s) {
				errs[key] = "The selected status is invalid"
				continue
			}
			changes[key] = models.RequestStatus(s)
		case "priority":
			p, _ := v.(string)
			if !models.Priority(p).Valid() {
				errs[key] = "The selected priority is invalid"
				continue
			}
			changes[key] = models.Priority(p)
		case "assigned_user_id", "assigned_team_id":
			if v == nil {
				changes[key] = nil
				continue
			}
			id, ok := toID(v)
			if !ok || !exists(key, id) {
				errs[key] = fmt.Sprintf("The selected %s is invalid", key)
				continue
			}
			changes[key] = id
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return changes, nil
}

func isUpdatableStatus(s string) bool {
	for _, st := range UpdatableStatuses() {
		if string(st) == s {
			return true
		}
	}
	return false
}

func toID(v interface{}) (uint, bool) {
	switch n := v.(type) {
	case float64:
		if n >= 1 && n == float64(uint(n)) {
			return uint(n), true
		}
	case int:
		if n >= 1 {
			return uint(n), true
		}
	case uint:
		return n, n >= 1
	case string:
		id, err := strconv.ParseUint(n, 10, 64)
		return uint(id), err == nil && id >= 1
	}
	return 0, false
}

func exists(key string, id uint) bool {
	var count int64
	switch key {
	case "assigned_user_id":
		database.DB.Model(&models.User{}).Where("id = ?", id).Count(&count)
	case "assigned_team_id":
		database.DB.Model(&models.Team{}).Where("id = ?", id).Count(&count)
	}
	return count > 0
}

// Snapshot is the audit view of the mutable request fields.
func Snapshot(r *models.Request) map[string]interface{} {
	return map[string]interface{}{
		"status":           r.Status,
		"assigned_user_id": r.AssignedUserID,
		"assigned_team_id": r.AssignedTeamID,
		"priority":         r.Priority,
	}
}

type UpdateResult struct {
	Request   *models.Request
	Before    map[string]interface{}
	After     map[string]interface{}
	OldStatus models.RequestStatus
}

// Update applies the mutable keys of raw to one request. RequestStatusChanged is
// published only when the status value changed.
func Update(actor *models.User, id uint, raw map[string]interface{}) (*UpdateResult, error) {
	req, err := Find(id)
	if err != nil {
		return nil, err
	}

	changes, err := ParseChanges(raw)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessRequest(database.DB, actor, req) {
		return nil, ErrForbidden
	}

	before := Snapshot(req)
	oldStatus := req.Status

	if len(changes) > 0 {
		if err := database.DB.Model(req).Updates(changes).Error; err != nil {
			return nil, err
		}
	}

	updated, err := Find(id, "RequestType", "Business", "AssignedUser", "AssignedTeam", "FieldValues")
	if err != nil {
		return nil, err
	}

	if updated.Status != oldStatus {
		events.Publish(events.NewRequestStatusChanged(updated, oldStatus))
	}

	return &UpdateResult{
		Request:   updated,
		Before:    before,
		After:     Snapshot(updated),
		OldStatus: oldStatus,
	}, nil
}

// Destroy soft deletes one request behind the access gate.
func Destroy(actor *models.User, id uint) (*models.Request, error) {
	req, err := Find(id)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessRequest(database.DB, actor, req) {
		return nil, ErrForbidden
	}
	if err := database.DB.Delete(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

const (
	BulkUpdate = "update"
	BulkDelete = "delete"
)

type BulkInput struct {
	Action string                 `json:"action" validate:"required,oneof=update delete"`
	IDs    []uint                 `json:"ids" validate:"required,min=1,dive,min=1"`
	Data   map[string]interface{} `json:"data"`
}

type BulkResult struct {
	Action string
	IDs    []uint
	Count  int64
	Before map[uint]map[string]interface{}
}

// Bulk authorizes every id before touching any of them. One denied id rejects the batch.
func Bulk(actor *models.User, in BulkInput) (*BulkResult, error) {
	ids := uniqueIDs(in.IDs)

	var reqs []models.Request
	if err := database.DB.Where("id IN ?", ids).Order("id ASC").Find(&reqs).Error; err != nil {
		return nil, err
	}
	if len(reqs) != len(ids) {
		return nil, InputErrors{"ids": "The selected ids are invalid"}
	}

	if denied := access.UnauthorizedRequests(database.DB, actor, reqs); len(denied) > 0 {
		return nil, &UnauthorizedIDsError{IDs: denied}
	}

	result := &BulkResult{Action: in.Action, IDs: ids, Before: map[uint]map[string]interface{}{}}
	for i := range reqs {
		result.Before[reqs[i].ID] = Snapshot(&reqs[i])
	}

	switch in.Action {
	case BulkUpdate:
		if len(in.Data) == 0 {
			return nil, InputErrors{"data": "data is required when action is update"}
		}
		changes, err := ParseChanges(in.Data)
		if err != nil {
			return nil, err
		}
		if len(changes) == 0 {
			return nil, ErrNoValidFields
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Request{}).Where("id IN ?", ids).Updates(changes)
			result.Count = res.RowsAffected
			return res.Error
		})
		if err != nil {
			return nil, err
		}

		if _, ok := changes["status"]; ok {
			publishStatusChanges(reqs)
		}
	case BulkDelete:
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Where("id IN ?", ids).Delete(&models.Request{})
			result.Count = res.RowsAffected
			return res.Error
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, InputErrors{"action": "The selected action is invalid"}
	}

	return result, nil
}

func publishStatusChanges(before []models.Request) {
	for _, old := range before {
		updated, err := Find(old.ID)
		if err != nil {
			continue
		}
		if updated.Status != old.Status {
			events.Publish(events.NewRequestStatusChanged(updated, old.Status))
		}
	}
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
