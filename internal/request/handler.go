package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/audit"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/gofiber/fiber/v2"
)

const entityType = "request"

// errorResponse maps service errors onto the response envelope.
func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	var fieldErrs FieldErrors
	var inputErrs InputErrors
	var denied *UnauthorizedIDsError

	switch {
	case errors.As(err, &fieldErrs):
		return response.FieldValidationError(c, fieldErrs)
	case errors.As(err, &inputErrs):
		return response.ValidationError(c, map[string]string(inputErrs))
	case errors.As(err, &denied):
		return response.ForbiddenWithDetails(c, "Unauthorized access to some requests",
			fiber.Map{"unauthorized_ids": denied.IDs})
	case errors.Is(err, ErrNotFound):
		return response.NotFound(c, "Request")
	case errors.Is(err, ErrBusinessAccess):
		return response.Forbidden(c, "Unauthorized access to business")
	case errors.Is(err, ErrTypeUnavailable):
		return response.Forbidden(c, "Request type is not available")
	case errors.Is(err, ErrForbidden):
		return response.Forbidden(c, "Unauthorized")
	case errors.Is(err, ErrNoValidFields):
		return response.ValidationMessage(c, "No valid fields to update", nil)
	}

	logging.Component("request").WithError(err).Error(fallback)
	return response.InternalError(c, fallback)
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func ListRequestsHandler(c *fiber.Ctx) error {
	page, limit, offset := response.Paging(c, 15, 100)

	reqs, total, err := List(access.CurrentUser(c), ListFilter{
		BusinessID:    uint(c.QueryInt("business_id")),
		RequestTypeID: uint(c.QueryInt("request_type_id")),
		Status:        c.Query("status"),
		Priority:      c.Query("priority"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return errorResponse(c, err, "Failed to fetch requests")
	}

	return response.SuccessWithMeta(c, reqs, response.CalculateMeta(page, limit, total), "Requests retrieved successfully")
}

// CreateRequestHandler accepts multipart forms (fields[key], fields[key][] and file parts)
// or a JSON body without uploads.
func CreateRequestHandler(c *fiber.Ctx) error {
	in, err := parseCreateInput(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	req, err := Create(access.CurrentUser(c), in)
	if err != nil {
		return errorResponse(c, err, "Failed to create request")
	}

	audit.Log(c, audit.ActionRequestCreated, entityType, req.ID, nil, Snapshot(req))
	return response.Created(c, req, "Request created successfully")
}

func parseCreateInput(c *fiber.Ctx) (CreateInput, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return CreateInput{}, err
		}
		return submissionFromForm(form), nil
	}

	var body struct {
		RequestTypeID uint                   `json:"request_type_id"`
		BusinessID    uint                   `json:"business_id"`
		Fields        map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return CreateInput{}, err
	}
	return CreateInput{
		RequestTypeID: body.RequestTypeID,
		BusinessID:    body.BusinessID,
		Fields:        Submission{Values: body.Fields},
	}, nil
}

// submissionFromForm reads fields[key] as a scalar, fields[key][] as a list and file
// parts under fields[key], fields[key][] or the bare key.
func submissionFromForm(form *multipart.Form) CreateInput {
	in := CreateInput{Fields: Submission{
		Values: map[string]interface{}{},
		Files:  map[string][]*multipart.FileHeader{},
	}}

	for name, vals := range form.Value {
		switch name {
		case "request_type_id":
			in.RequestTypeID = firstUint(vals)
			continue
		case "business_id":
			in.BusinessID = firstUint(vals)
			continue
		}

		key, list, ok := fieldKey(name)
		if !ok || len(vals) == 0 {
			continue
		}
		if list {
			in.Fields.Values[key] = append([]string(nil), vals...)
		} else {
			in.Fields.Values[key] = vals[0]
		}
	}

	for name, files := range form.File {
		key, _, ok := fieldKey(name)
		if !ok {
			key = name
		}
		in.Fields.Files[key] = append(in.Fields.Files[key], files...)
	}
	return in
}

func fieldKey(name string) (key string, list bool, ok bool) {
	if !strings.HasPrefix(name, "fields[") {
		return "", false, false
	}
	rest := strings.TrimPrefix(name, "fields[")
	end := strings.Index(rest, "]")
	if end <= 0 {
		return "", false, false
	}
	return rest[:end], strings.HasSuffix(rest[end:], "[]"), true
}

func firstUint(vals []string) uint {
	if len(vals) == 0 {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(vals[0]), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

func GetRequestHandler(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid request ID", nil)
	}

	req, err := Detail(access.CurrentUser(c), id)
	if err != nil {
		return errorResponse(c, err, "Failed to fetch request")
	}
	return response.Success(c, req, "Request retrieved successfully")
}

func UpdateRequestHandler(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid request ID", nil)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	res, err := Update(access.CurrentUser(c), id, raw)
	if err != nil {
		return errorResponse(c, err, "Failed to update request")
	}

	audit.Log(c, audit.ActionRequestUpdated, entityType, id, res.Before, res.After)
	return response.Success(c, res.Request, "Request updated successfully")
}

func DeleteRequestHandler(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid request ID", nil)
	}

	req, err := Destroy(access.CurrentUser(c), id)
	if err != nil {
		return errorResponse(c, err, "Failed to delete request")
	}

	audit.Log(c, audit.ActionRequestDeleted, entityType, id, Snapshot(req), nil)
	return response.Success(c, nil, "Request deleted successfully")
}

func BulkRequestsHandler(c *fiber.Ctx) error {
	var in BulkInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}

	res, err := Bulk(access.CurrentUser(c), in)
	if err != nil {
		return errorResponse(c, err, "Failed to apply bulk action")
	}

	if res.Action == BulkDelete {
		audit.Log(c, audit.ActionRequestBulkDeleted, entityType, 0, fiber.Map{"ids": res.IDs}, nil)
		return response.Success(c, fiber.Map{"deleted_count": res.Count, "ids": res.IDs},
			fmt.Sprintf("%d request(s) deleted successfully", res.Count))
	}

	audit.Log(c, audit.ActionRequestBulkUpdated, entityType, 0, res.Before, fiber.Map{"ids": res.IDs, "changes": in.Data})
	return response.Success(c, fiber.Map{"updated_count": res.Count, "ids": res.IDs},
		fmt.Sprintf("%d request(s) updated successfully", res.Count))
}
