package requesttype

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound    = errors.New("request type not found")
	ErrUnavailable = errors.New("request type is not available")
)

// FieldInUseError rejects removing fields that already hold request answers.
type FieldInUseError struct {
	Keys []string
}

func (e *FieldInUseError) Error() string {
	return fmt.Sprintf("fields still referenced by requests: %v", e.Keys)
}

// InputErrors are payload problems keyed by JSON path.
type InputErrors map[string]string

func (e InputErrors) Error() string {
	return fmt.Sprintf("invalid input: %d field(s)", len(e))
}

type FieldInput struct {
	FieldKey   string          `json:"field_key" validate:"required,max=100"`
	Label      string          `json:"label" validate:"required,max=255"`
	Type       string          `json:"type" validate:"required,oneof=text textarea select multiselect date file image"`
	Required   bool            `json:"required"`
	Options    json.RawMessage `json:"options"`
	Validation json.RawMessage `json:"validation"`
	Order      *int            `json:"order"`
}

type CreateInput struct {
	Name          string       `json:"name" validate:"required,max=255"`
	Description   string       `json:"description"`
	IsPublished   bool         `json:"is_published"`
	DefaultTeamID *uint        `json:"default_team_id"`
	SLAHours      int          `json:"sla_hours" validate:"required,min=1"`
	Fields        []FieldInput `json:"fields" validate:"required,min=1,dive"`
}

// UpdateInput carries only the keys present in the payload. ClearDefaultTeam is set
// when default_team_id was sent as null.
type UpdateInput struct {
	Name             *string       `json:"name" validate:"omitempty,min=1,max=255"`
	Description      *string       `json:"description"`
	IsPublished      *bool         `json:"is_published"`
	DefaultTeamID    *uint         `json:"default_team_id"`
	ClearDefaultTeam bool          `json:"-"`
	SLAHours         *int          `json:"sla_hours" validate:"omitempty,min=1"`
	Fields           *[]FieldInput `json:"fields" validate:"omitempty,min=1,dive"`
}

func rawJSON(raw json.RawMessage) datatypes.JSON {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return datatypes.JSON(trimmed)
}

// checkFields rejects duplicate keys and option payloads that are neither objects nor arrays.
func checkFields(fields []FieldInput) InputErrors {
	errs := InputErrors{}
	seen := map[string]bool{}
	for i, f := range fields {
		if seen[f.FieldKey] {
			errs[fmt.Sprintf("fields[%d].field_key", i)] = "field_key must be unique within the request type"
		}
		seen[f.FieldKey] = true

		for name, raw := range map[string]json.RawMessage{"options": f.Options, "validation": f.Validation} {
			v := rawJSON(raw)
			if v == nil {
				continue
			}
			if first := v[0]; first != '{' && first != '[' {
				errs[fmt.Sprintf("fields[%d].%s", i, name)] = name + " must be an object or array"
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func teamExists(id uint) bool {
	var count int64
	database.DB.Model(&models.Team{}).Where("id = ?", id).Count(&count)
	return count > 0
}

func toField(typeID uint, index int, f FieldInput) models.RequestTypeField {
	order := index
	if f.Order != nil {
		order = *f.Order
	}
	return models.RequestTypeField{
		RequestTypeID: typeID,
		FieldKey:      f.FieldKey,
		Label:         f.Label,
		Type:          models.FieldType(f.Type),
		Required:      f.Required,
		Options:       rawJSON(f.Options),
		Validation:    rawJSON(f.Validation),
		Order:         order,
	}
}

func Create(in CreateInput) (*models.RequestType, error) {
	if errs := checkFields(in.Fields); errs != nil {
		return nil, errs
	}
	if in.DefaultTeamID != nil && !teamExists(*in.DefaultTeamID) {
		return nil, InputErrors{"default_team_id": "The selected default_team_id is invalid"}
	}

	rt := models.RequestType{
		Name:          in.Name,
		Description:   in.Description,
		DefaultTeamID: in.DefaultTeamID,
		SLAHours:      in.SLAHours,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rt).Error; err != nil {
			return err
		}
		if in.IsPublished {
			if err := tx.Model(&rt).Update("is_published", true).Error; err != nil {
				return err
			}
		}
		for i, f := range in.Fields {
			field := toField(rt.ID, i, f)
			if err := tx.Create(&field).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return Find(rt.ID)
}

// Find loads a type with ordered fields and its default team.
func Find(id uint) (*models.RequestType, error) {
	var rt models.RequestType
	err := database.DB.Preload("Fields", models.OrderedFields).Preload("DefaultTeam").First(&rt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// FindPublished is Find restricted to types offered to clients.
func FindPublished(id uint) (*models.RequestType, error) {
	rt, err := Find(id)
	if err != nil {
		return nil, err
	}
	if !rt.IsPublished {
		return nil, ErrUnavailable
	}
	return rt, nil
}

func List(limit, offset int) ([]models.RequestType, int64, error) {
	var total int64
	if err := database.DB.Model(&models.RequestType{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var types []models.RequestType
	err := database.DB.Preload("Fields", models.OrderedFields).Preload("DefaultTeam").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).Find(&types).Error
	return types, total, err
}

func ListPublished() ([]models.RequestType, error) {
	var types []models.RequestType
	err := database.DB.Preload("Fields", models.OrderedFields).
		Where("is_published = ?", true).
		Order("name ASC").Find(&types).Error
	return types, err
}

// Update applies the present keys. A field list replaces the schema: fields upsert by
// field_key and missing keys are removed unless requests already answered them.
func Update(id uint, in UpdateInput) (*models.RequestType, *models.RequestType, error) {
	before, err := Find(id)
	if err != nil {
		return nil, nil, err
	}

	if in.Fields != nil {
		if errs := checkFields(*in.Fields); errs != nil {
			return nil, nil, errs
		}
	}
	if in.DefaultTeamID != nil && !teamExists(*in.DefaultTeamID) {
		return nil, nil, InputErrors{"default_team_id": "The selected default_team_id is invalid"}
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.IsPublished != nil {
		updates["is_published"] = *in.IsPublished
	}
	if in.DefaultTeamID != nil {
		updates["default_team_id"] = *in.DefaultTeamID
	} else if in.ClearDefaultTeam {
		updates["default_team_id"] = nil
	}
	if in.SLAHours != nil {
		updates["sla_hours"] = *in.SLAHours
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.RequestType{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.Fields != nil {
			return syncFields(tx, id, *in.Fields)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	after, err := Find(id)
	return before, after, err
}

func syncFields(tx *gorm.DB, typeID uint, fields []FieldInput) error {
	keep := make([]string, 0, len(fields))
	for i, f := range fields {
		field := toField(typeID, i, f)
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "request_type_id"}, {Name: "field_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"label", "type", "required", "options", "validation", "sort_order", "updated_at",
			}),
		}).Create(&field).Error
		if err != nil {
			return err
		}
		keep = append(keep, f.FieldKey)
	}

	var removed []string
	tx.Model(&models.RequestTypeField{}).
		Where("request_type_id = ? AND field_key NOT IN ?", typeID, keep).
		Pluck("field_key", &removed)
	if len(removed) == 0 {
		return nil
	}

	var inUse []string
	tx.Model(&models.RequestFieldValue{}).
		Joins("JOIN requests ON requests.id = request_field_values.request_id").
		Where("requests.request_type_id = ? AND request_field_values.field_key IN ?", typeID, removed).
		Distinct().Pluck("request_field_values.field_key", &inUse)
	if len(inUse) > 0 {
		return &FieldInUseError{Keys: inUse}
	}

	return tx.Where("request_type_id = ? AND field_key IN ?", typeID, removed).
		Delete(&models.RequestTypeField{}).Error
}

func Delete(id uint) (*models.RequestType, error) {
	rt, err := Find(id)
	if err != nil {
		return nil, err
	}
	if err := database.DB.Delete(rt).Error; err != nil {
		return nil, err
	}
	return rt, nil
}
