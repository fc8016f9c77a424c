package request

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Submission is the raw answer set of a request form keyed by field_key. Values holds
// strings, string slices or decoded JSON; Files holds uploads in submission order.
type Submission struct {
	Values map[string]interface{}
	Files  map[string][]*multipart.FileHeader
}

func (s Submission) value(key string) interface{} {
	if s.Values == nil {
		return nil
	}
	return s.Values[key]
}

func (s Submission) files(key string) []*multipart.FileHeader {
	if s.Files == nil {
		return nil
	}
	return s.Files[key]
}

// FieldErrors maps field_key to every message collected for it.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e[k], "; "))
	}
	return "field validation failed: " + strings.Join(parts, ", ")
}

func (e FieldErrors) add(key string, msgs ...string) {
	if len(msgs) == 0 {
		return
	}
	e[key] = append(e[key], msgs...)
}

func isEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	case bool:
		return !val
	case float64:
		return val == 0
	}
	return false
}

// MaxFileSize caps each upload on a file field.
const MaxFileSize = 10 * 1024 * 1024

// ValidateFields checks a submission against the ordered field schema. Every field is
// checked; the result is nil when nothing failed.
func ValidateFields(fields []models.RequestTypeField, sub Submission) FieldErrors {
	errs := FieldErrors{}

	for _, field := range fields {
		key := field.FieldKey

		switch field.Type {
		case models.FieldImage:
			errs.add(key, validateImages(field, sub.files(key))...)
			continue
		case models.FieldFile:
			errs.add(key, validateFile(field, sub.files(key))...)
			continue
		}

		if field.Required && isEmpty(sub.value(key)) {
			errs.add(key, requiredMessage(field))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func requiredMessage(field models.RequestTypeField) string {
	return fmt.Sprintf("Field %s is required", field.Label)
}

// validateFile accepts a single upload of any type up to MaxFileSize.
func validateFile(field models.RequestTypeField, files []*multipart.FileHeader) []string {
	if len(files) == 0 {
		if field.Required {
			return []string{requiredMessage(field)}
		}
		return nil
	}

	var msgs []string
	if len(files) > 1 {
		msgs = append(msgs, "Only one file allowed")
	}
	for _, fh := range files {
		if fh.Size > MaxFileSize {
			msgs = append(msgs, "File size exceeds 10MB")
		}
	}
	return msgs
}

func validateImages(field models.RequestTypeField, files []*multipart.FileHeader) []string {
	if len(files) == 0 {
		if field.Required {
			return []string{requiredMessage(field)}
		}
		return nil
	}

	cfg := field.ImageConfig()
	var msgs []string

	if len(files) > cfg.MaxFiles {
		msgs = append(msgs, fmt.Sprintf("Maximum %d files allowed", cfg.MaxFiles))
	}

	for _, fh := range files {
		mime, err := storage.DetectMIME(fh)
		if err != nil || !mimeAllowed(mime, cfg.AllowedExtensions) {
			msgs = append(msgs, "Invalid file type. Allowed: "+strings.Join(cfg.AllowedExtensions, ", "))
		}
		if fh.Size > cfg.MaxBytes() {
			msgs = append(msgs, fmt.Sprintf("File size exceeds %sMB", strconv.FormatFloat(cfg.MaxSizeMB, 'f', -1, 64)))
		}
	}
	return msgs
}

// mimeAllowed matches image/{ext} exactly. "jpg" also admits image/jpeg, the type
// every JPEG sniffs as.
func mimeAllowed(mime string, exts []string) bool {
	for _, ext := range exts {
		if mime == "image/"+ext {
			return true
		}
		if ext == "jpg" && mime == "image/jpeg" {
			return true
		}
	}
	return false
}

// SetFieldValue upserts the value of one field on a request. Plain strings go to
// value_text; anything else non-nil is stored as JSON in value_json.
func SetFieldValue(tx *gorm.DB, requestID uint, key string, value interface{}) (*models.RequestFieldValue, error) {
	row := models.RequestFieldValue{RequestID: requestID, FieldKey: key}

	switch v := value.(type) {
	case nil:
	case string:
		row.ValueText = &v
	case datatypes.JSON:
		row.ValueJSON = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "encode value of %s", key)
		}
		row.ValueJSON = datatypes.JSON(raw)
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_id"}, {Name: "field_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value_text", "value_json", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, errors.Wrapf(err, "upsert field value %s", key)
	}
	return &row, nil
}

// Materializer writes a validated submission for one request: image and file uploads go to storage
// with an Attachment row each, then every field gets its value upserted. Paths written
// to storage are remembered so Compensate can remove them when the transaction fails.
type Materializer struct {
	Storage    storage.Storage
	UploaderID uint
	Log        *logrus.Entry

	written []string
}

func (m *Materializer) Materialize(tx *gorm.DB, req *models.Request, fields []models.RequestTypeField, sub Submission) error {
	for _, field := range fields {
		key := field.FieldKey

		var value interface{}
		switch field.Type {
		case models.FieldImage, models.FieldFile:
			urls, err := m.storeUploads(tx, req, sub.files(key))
			if err != nil {
				return err
			}
			value = uploadValue(field.ImageConfig().Multiple, urls)
		default:
			value = sub.value(key)
		}

		if _, err := SetFieldValue(tx, req.ID, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *Materializer) storeUploads(tx *gorm.DB, req *models.Request, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		stored, err := storage.StoreUpload(m.Storage, fh, RequestDir(req.ID))
		if err != nil {
			return nil, err
		}
		m.written = append(m.written, stored.Path)

		attachment := models.Attachment{
			EntityType: models.EntityRequest,
			EntityID:   req.ID,
			UploadedBy: m.UploaderID,
			FilePath:   stored.Path,
			FileName:   stored.Name,
			MimeType:   stored.MimeType,
			Size:       stored.Size,
			Disk:       stored.Disk,
		}
		if err := tx.Create(&attachment).Error; err != nil {
			return nil, errors.Wrap(err, "create attachment")
		}
		urls = append(urls, stored.URL)
	}
	return urls, nil
}

// Compensate deletes every file written so far. Failures are logged only.
func (m *Materializer) Compensate() {
	for _, p := range m.written {
		if err := m.Storage.Delete(p); err != nil && !errors.Is(err, storage.ErrNotFound) {
			if m.Log != nil {
				m.Log.WithError(err).WithField("path", p).Warn("failed to remove orphaned upload")
			}
		}
	}
	m.written = nil
}

func (m *Materializer) Written() []string {
	return append([]string(nil), m.written...)
}

// uploadValue is {urls} for multi-image fields and {url} otherwise.
func uploadValue(multiple bool, urls []string) map[string]interface{} {
	if multiple {
		return map[string]interface{}{"urls": urls}
	}
	if len(urls) == 0 {
		return map[string]interface{}{"url": nil}
	}
	return map[string]interface{}{"url": urls[0]}
}

func RequestDir(id uint) string {
	return "requests/" + strconv.FormatUint(uint64(id), 10)
}

// DueAt is creation time plus the SLA hours of the request type.
func DueAt(createdAt time.Time, slaHours int) time.Time {
	if slaHours <= 0 {
		slaHours = models.DefaultSLAHours
	}
	return createdAt.Add(time.Duration(slaHours) * time.Hour)
}
