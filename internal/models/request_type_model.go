package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldSelect      FieldType = "select"
	FieldMultiselect FieldType = "multiselect"
	FieldDate        FieldType = "date"
	FieldFile        FieldType = "file"
	FieldImage       FieldType = "image"
)

var fieldTypes = []FieldType{
	FieldText, FieldTextarea, FieldSelect, FieldMultiselect, FieldDate, FieldFile, FieldImage,
}

func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

func (t FieldType) Valid() bool {
	for _, ft := range fieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

const DefaultSLAHours = 72

type RequestType struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	Name          string             `gorm:"size:255;not null" json:"name"`
	Description   string             `gorm:"type:text" json:"description,omitempty"`
	IsPublished   bool               `gorm:"default:false" json:"is_published"`
	DefaultTeamID *uint              `gorm:"index" json:"default_team_id"`
	DefaultTeam   *Team              `gorm:"foreignKey:DefaultTeamID;constraint:OnDelete:SET NULL" json:"default_team,omitempty"`
	SLAHours      int                `gorm:"column:sla_hours;default:72" json:"sla_hours"`
	Fields        []RequestTypeField `gorm:"foreignKey:RequestTypeID;constraint:OnDelete:CASCADE" json:"fields,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	DeletedAt     gorm.DeletedAt     `gorm:"index" json:"-"`
}

// OrderedFields is the preload scope for RequestType.Fields: order ascending, ties by insertion.
func OrderedFields(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC").Order("id ASC")
}

type RequestTypeField struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	RequestTypeID uint           `gorm:"uniqueIndex:idx_type_field_key;not null" json:"request_type_id"`
	FieldKey      string         `gorm:"size:100;uniqueIndex:idx_type_field_key;not null" json:"field_key"`
	Label         string         `gorm:"size:255;not null" json:"label"`
	Type          FieldType      `gorm:"size:20;not null" json:"type"`
	Required      bool           `gorm:"default:false" json:"required"`
	Options       datatypes.JSON `json:"options,omitempty"`
	Validation    datatypes.JSON `json:"validation,omitempty"`
	Order         int            `gorm:"column:sort_order;default:0" json:"order"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (f RequestTypeField) IsImageType() bool {
	return f.Type == FieldImage
}

// ImageConfig is the resolved upload policy of an image field.
type ImageConfig struct {
	Multiple          bool     `json:"multiple"`
	MaxFiles          int      `json:"max_files"`
	MaxSizeMB         float64  `json:"max_size_mb"`
	AllowedExtensions []string `json:"allowed_extensions"`
	Public            bool     `json:"public"`
}

func (c ImageConfig) IsZero() bool {
	return !c.Multiple && c.MaxFiles == 0 && c.MaxSizeMB == 0 && len(c.AllowedExtensions) == 0 && !c.Public
}

func (c ImageConfig) MaxBytes() int64 {
	return int64(c.MaxSizeMB * 1024 * 1024)
}

func DefaultImageConfig() ImageConfig {
	return ImageConfig{
		Multiple:          false,
		MaxFiles:          1,
		MaxSizeMB:         4,
		AllowedExtensions: []string{"jpg", "png", "webp"},
		Public:            true,
	}
}

// ImageConfig resolves the upload policy from Options. It never fails: non-image fields get
// the zero policy and malformed option values fall back to defaults.
func (f RequestTypeField) ImageConfig() ImageConfig {
	if !f.IsImageType() {
		return ImageConfig{}
	}

	cfg := DefaultImageConfig()
	opts := f.optionMap()
	if opts == nil {
		return cfg
	}

	if v, ok := opts["multiple"]; ok {
		if b, ok := asBool(v); ok {
			cfg.Multiple = b
		}
	}
	if v, ok := opts["max_files"]; ok {
		if n, ok := asFloat(v); ok && n >= 1 {
			cfg.MaxFiles = int(n)
		}
	}
	for _, key := range []string{"max_size_mb", "max_size"} {
		if v, ok := opts[key]; ok {
			if n, ok := asFloat(v); ok && n > 0 {
				cfg.MaxSizeMB = n
				break
			}
		}
	}
	for _, key := range []string{"allowed_extensions", "allowed_types"} {
		if v, ok := opts[key]; ok {
			if list := asStringList(v); len(list) > 0 {
				cfg.AllowedExtensions = list
				break
			}
		}
	}
	if v, ok := opts["public"]; ok {
		if b, ok := asBool(v); ok {
			cfg.Public = b
		}
	}
	return cfg
}

// Choices returns the option list of select/multiselect fields. Options may be a bare array
// or an object carrying "choices".
func (f RequestTypeField) Choices() []string {
	if len(f.Options) == 0 {
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(f.Options, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case []interface{}:
		return asStringList(v)
	case map[string]interface{}:
		if c, ok := v["choices"]; ok {
			return asStringList(c)
		}
	}
	return nil
}

func (f RequestTypeField) optionMap() map[string]interface{} {
	if len(f.Options) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(f.Options, &m); err != nil {
		return nil
	}
	return m
}

func asBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	}
	return false, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return parsed, err == nil
	}
	return 0, false
}

func asStringList(v interface{}) []string {
	switch list := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(list, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}
