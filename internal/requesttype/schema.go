package requesttype

import (
	"fmt"
	"strings"

	"github.com/Kyz7/requestdesk/internal/models"
)

// FormField is one resolved field of a form schema.
type FormField struct {
	Key          string              `json:"field_key"`
	Label        string              `json:"label"`
	Type         models.FieldType    `json:"type"`
	Required     bool                `json:"required"`
	Order        int                 `json:"order"`
	Choices      []string            `json:"choices,omitempty"`
	Image        *models.ImageConfig `json:"image,omitempty"`
	MultipartKey string              `json:"multipart_key"`
	Accept       string              `json:"accept,omitempty"`
	Description  string              `json:"description"`
	Example      interface{}         `json:"example"`
}

// FormSchema describes how to render and submit a request type's form.
type FormSchema struct {
	RequestTypeID uint                   `json:"request_type_id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	SLAHours      int                    `json:"sla_hours"`
	Endpoint      string                 `json:"endpoint"`
	ContentType   string                 `json:"content_type"`
	Fields        []FormField            `json:"fields"`
	Example       map[string]interface{} `json:"example_payload"`
}

// BuildSchema resolves a type's ordered fields into a form description.
func BuildSchema(rt *models.RequestType, baseURL string) FormSchema {
	schema := FormSchema{
		RequestTypeID: rt.ID,
		Name:          rt.Name,
		Description:   rt.Description,
		SLAHours:      rt.SLAHours,
		Endpoint:      strings.TrimRight(baseURL, "/") + "/v1/requests",
		ContentType:   "application/json",
		Fields:        []FormField{},
	}

	fields := map[string]interface{}{}
	for _, f := range rt.Fields {
		ff := FormField{
			Key:          f.FieldKey,
			Label:        f.Label,
			Type:         f.Type,
			Required:     f.Required,
			Order:        f.Order,
			MultipartKey: fmt.Sprintf("fields[%s]", f.FieldKey),
			Description:  describe(f),
			Example:      example(f),
		}

		switch f.Type {
		case models.FieldSelect, models.FieldMultiselect:
			ff.Choices = f.Choices()
			if f.Type == models.FieldMultiselect {
				ff.MultipartKey += "[]"
			}
		case models.FieldImage:
			cfg := f.ImageConfig()
			ff.Image = &cfg
			ff.Accept = accept(cfg.AllowedExtensions)
			if cfg.Multiple {
				ff.MultipartKey += "[]"
			}
			schema.ContentType = "multipart/form-data"
		case models.FieldFile:
			schema.ContentType = "multipart/form-data"
		}

		schema.Fields = append(schema.Fields, ff)
		fields[f.FieldKey] = ff.Example
	}

	schema.Example = map[string]interface{}{
		"request_type_id": rt.ID,
		"business_id":     1,
		"fields":          fields,
	}
	return schema
}

func accept(exts []string) string {
	types := make([]string, 0, len(exts))
	for _, ext := range exts {
		types = append(types, "image/"+ext)
		if ext == "jpg" {
			types = append(types, "image/jpeg")
		}
	}
	return strings.Join(types, ",")
}

func describe(f models.RequestTypeField) string {
	switch f.Type {
	case models.FieldTextarea:
		return "Multi-line text"
	case models.FieldSelect:
		return "One of the listed choices"
	case models.FieldMultiselect:
		return "Any of the listed choices"
	case models.FieldDate:
		return "Date (YYYY-MM-DD)"
	case models.FieldFile:
		return "Single file upload, up to 10MB"
	case models.FieldImage:
		cfg := f.ImageConfig()
		return fmt.Sprintf("Up to %d image(s), %gMB each, types: %s",
			cfg.MaxFiles, cfg.MaxSizeMB, strings.Join(cfg.AllowedExtensions, ", "))
	}
	return "Text"
}

func example(f models.RequestTypeField) interface{} {
	switch f.Type {
	case models.FieldSelect:
		if c := f.Choices(); len(c) > 0 {
			return c[0]
		}
		return "option"
	case models.FieldMultiselect:
		if c := f.Choices(); len(c) > 0 {
			return c[:1]
		}
		return []string{"option"}
	case models.FieldDate:
		return "2026-01-31"
	case models.FieldFile:
		return "<binary>"
	case models.FieldImage:
		if f.ImageConfig().Multiple {
			return []string{"<binary>"}
		}
		return "<binary>"
	case models.FieldTextarea:
		return "Longer description of " + strings.ToLower(f.Label)
	}
	return "Sample " + strings.ToLower(f.Label)
}
