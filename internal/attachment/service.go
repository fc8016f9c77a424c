package attachment

import (
	"io"
	"mime/multipart"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/request"
	"github.com/Kyz7/requestdesk/internal/storage"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MaxUploadSize caps a single attachment.
const MaxUploadSize = 10 * 1024 * 1024

var (
	ErrNotFound     = errors.New("attachment not found")
	ErrForbidden    = errors.New("cannot delete attachment")
	ErrTooLarge     = errors.New("file too large")
	ErrFileNotFound = errors.New("file not found")
)

func withURL(a *models.Attachment) {
	if storage.Default != nil {
		a.URL = storage.Default.URL(a.FilePath)
	}
}

// List returns the request's attachments, newest first.
func List(actor *models.User, requestID uint) ([]models.Attachment, error) {
	if _, err := request.Accessible(actor, requestID); err != nil {
		return nil, err
	}

	var items []models.Attachment
	err := database.DB.Preload("Uploader").
		Where("entity_type = ? AND entity_id = ?", models.EntityRequest, requestID).
		Order("created_at DESC").Order("id DESC").
		Find(&items).Error
	for i := range items {
		withURL(&items[i])
	}
	return items, err
}

// Upload stores fh next to the request's field images and records it.
func Upload(actor *models.User, requestID uint, fh *multipart.FileHeader) (*models.Attachment, error) {
	req, err := request.Accessible(actor, requestID)
	if err != nil {
		return nil, err
	}
	if fh.Size > MaxUploadSize {
		return nil, ErrTooLarge
	}
	if storage.Default == nil {
		return nil, request.ErrStorageUnavailable
	}

	stored, err := storage.StoreUpload(storage.Default, fh, request.RequestDir(req.ID))
	if err != nil {
		return nil, errors.Wrap(err, "store attachment")
	}

	att := models.Attachment{
		EntityType: models.EntityRequest,
		EntityID:   req.ID,
		UploadedBy: actor.ID,
		FilePath:   stored.Path,
		FileName:   stored.Name,
		MimeType:   stored.MimeType,
		Size:       stored.Size,
		Disk:       stored.Disk,
	}
	if err := database.DB.Create(&att).Error; err != nil {
		if derr := storage.Default.Delete(stored.Path); derr != nil {
			logging.Component("attachment").WithError(derr).
				WithField("path", stored.Path).Warn("Failed to remove orphaned upload")
		}
		return nil, errors.Wrap(err, "create attachment")
	}

	database.DB.Preload("Uploader").First(&att, att.ID)
	withURL(&att)
	return &att, nil
}

func find(id uint) (*models.Attachment, error) {
	var att models.Attachment
	if err := database.DB.First(&att, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &att, nil
}

// Open returns the stored bytes of an attachment the actor may see.
func Open(actor *models.User, id uint) (*models.Attachment, io.ReadCloser, error) {
	att, err := find(id)
	if err != nil {
		return nil, nil, err
	}
	if _, err := request.Accessible(actor, att.EntityID); err != nil {
		return nil, nil, err
	}
	if storage.Default == nil {
		return nil, nil, ErrFileNotFound
	}

	rc, err := storage.Default.Open(att.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, err
	}
	return att, rc, nil
}

// Delete removes an attachment. Staff and admins who can see the request may delete
// any attachment on it; clients only their own uploads.
func Delete(actor *models.User, id uint) (*models.Attachment, error) {
	att, err := find(id)
	if err != nil {
		return nil, err
	}
	if _, err := request.Accessible(actor, att.EntityID); err != nil {
		if errors.Is(err, request.ErrForbidden) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if actor.IsClient() && att.UploadedBy != actor.ID {
		return nil, ErrForbidden
	}

	if storage.Default != nil && storage.Default.Exists(att.FilePath) {
		if err := storage.Default.Delete(att.FilePath); err != nil {
			logging.Component("attachment").WithError(err).
				WithField("path", att.FilePath).Warn("Failed to remove stored file")
		}
	}
	if err := database.DB.Delete(att).Error; err != nil {
		return nil, err
	}
	return att, nil
}
