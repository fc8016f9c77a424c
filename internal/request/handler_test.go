package request_test

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/Kyz7/requestdesk/internal/events"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/storage"
	"github.com/Kyz7/requestdesk/internal/testutils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	env     *testutils.Env
	admin   *models.User
	owner   *models.User
	member  *models.User
	staff   *models.User
	outside *models.User
	biz     *models.Business
	team    *models.Team
	design  *models.RequestType

	adminToken, ownerToken, memberToken, staffToken, outsideToken string
}

func setup(t *testing.T) *fixture {
	env := testutils.SetupTestEnv(t)
	db := env.DB

	f := &fixture{env: env}
	f.admin = testutils.CreateTestUser(t, db, "admin@example.com", "password123", models.RoleAdmin)
	f.owner = testutils.CreateTestUser(t, db, "owner@example.com", "password123", models.RoleClient)
	f.member = testutils.CreateTestUser(t, db, "member@example.com", "password123", models.RoleClient)
	f.staff = testutils.CreateTestUser(t, db, "staff@example.com", "password123", models.RoleStaff)
	f.outside = testutils.CreateTestUser(t, db, "outside@example.com", "password123", models.RoleClient)

	f.biz = testutils.CreateTestBusiness(t, db, f.owner, "Acme", f.member, f.staff)
	f.team = testutils.CreateTestTeam(t, db, "Design Team", f.staff)
	f.design = testutils.CreateTestRequestType(t, db, "Design Request", 120, true, f.team,
		testutils.FieldDef{Key: "title", Label: "Title", Type: models.FieldText, Required: true},
		testutils.FieldDef{
			Key: "references", Label: "References", Type: models.FieldImage, Required: true,
			Options: `{"multiple":true,"max_files":5,"max_size":4,"allowed_types":["jpg","png","webp"]}`,
		},
	)

	f.adminToken = testutils.GetAuthToken(t, f.admin.ID, f.admin.Role)
	f.ownerToken = testutils.GetAuthToken(t, f.owner.ID, f.owner.Role)
	f.memberToken = testutils.GetAuthToken(t, f.member.ID, f.member.Role)
	f.staffToken = testutils.GetAuthToken(t, f.staff.ID, f.staff.Role)
	f.outsideToken = testutils.GetAuthToken(t, f.outside.ID, f.outside.Role)
	return f
}

func (f *fixture) formFields(rt *models.RequestType) map[string]string {
	return map[string]string{
		"request_type_id": strconv.FormatUint(uint64(rt.ID), 10),
		"business_id":     strconv.FormatUint(uint64(f.biz.ID), 10),
		"fields[title]":   "Spring campaign",
	}
}

func pngFile(name string) testutils.UploadFile {
	return testutils.UploadFile{Field: "fields[references][]", Filename: name, ContentType: "image/png", Content: testutils.PNG}
}

// failingStorage wraps a backend and fails the failOn-th Store call.
type failingStorage struct {
	storage.Storage
	failOn  int
	stores  int
	deleted []string
}

func (s *failingStorage) Store(r io.Reader, dir, filename, contentType string) (string, error) {
	s.stores++
	if s.stores == s.failOn {
		return "", errors.New("disk full")
	}
	return s.Storage.Store(r, dir, filename, contentType)
}

func (s *failingStorage) Delete(p string) error {
	s.deleted = append(s.deleted, p)
	return s.Storage.Delete(p)
}

func TestCreateRequestHandler(t *testing.T) {
	t.Run("Success - Client submits design request with two images", func(t *testing.T) {
		f := setup(t)

		resp, err := testutils.MakeMultipartRequestWithFiles(f.env.App, "POST", "/v1/requests",
			f.formFields(f.design), []testutils.UploadFile{pngFile("a.png"), pngFile("b.png")}, f.ownerToken)
		require.NoError(t, err)
		require.Equal(t, 201, resp.Code, resp.Body.String())
		testutils.AssertSuccess(t, resp)

		data := testutils.DataMap(t, resp)
		id := uint(data["id"].(float64))
		assert.Equal(t, "new", data["status"])
		assert.Equal(t, "medium", data["priority"])
		assert.Equal(t, float64(f.team.ID), data["assigned_team_id"])

		var req models.Request
		require.NoError(t, f.env.DB.First(&req, id).Error)
		require.NotNil(t, req.DueAt)
		assert.WithinDuration(t, req.CreatedAt.Add(120*time.Hour), *req.DueAt, time.Second)

		var value models.RequestFieldValue
		require.NoError(t, f.env.DB.Where("request_id = ? AND field_key = ?", id, "references").First(&value).Error)
		var refs map[string][]string
		require.NoError(t, json.Unmarshal(value.ValueJSON, &refs))
		assert.Len(t, refs["urls"], 2)

		var title models.RequestFieldValue
		require.NoError(t, f.env.DB.Where("request_id = ? AND field_key = ?", id, "title").First(&title).Error)
		require.NotNil(t, title.ValueText)
		assert.Equal(t, "Spring campaign", *title.ValueText)

		var attachments int64
		f.env.DB.Model(&models.Attachment{}).Where("entity_id = ?", id).Count(&attachments)
		assert.Equal(t, int64(2), attachments)

		created := f.env.Events.Named(events.RequestCreated)
		require.Len(t, created, 1)
		assert.Equal(t, id, created[0].Payload["request_id"])
		assert.Len(t, created[0].Payload["images"], 2)

		var audits int64
		f.env.DB.Model(&models.AuditLog{}).Where("action = ? AND entity_id = ?", "request.created", id).Count(&audits)
		assert.Equal(t, int64(1), audits)
	})

	t.Run("Success - Pivot member may submit", func(t *testing.T) {
		f := setup(t)

		resp, err := testutils.MakeMultipartRequestWithFiles(f.env.App, "POST", "/v1/requests",
			f.formFields(f.design), []testutils.UploadFile{pngFile("a.png")}, f.memberToken)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.Code, resp.Body.String())
	})

	t.Run("Error - Missing required fields are collected", func(t *testing.T) {
		f := setup(t)

		fields := f.formFields(f.design)
		delete(fields, "fields[title]")
		resp, err := testutils.MakeMultipartRequest(f.env.App, "POST", "/v1/requests", fields, f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.Equal(t, "Field validation error", result.Message)
		assert.Contains(t, result.Errors, "title")
		assert.Contains(t, result.Errors, "references")
		assert.Len(t, result.Errors, 2)

		var count int64
		f.env.DB.Model(&models.Request{}).Count(&count)
		assert.Zero(t, count)
		assert.Empty(t, f.env.Events.Named(events.RequestCreated))
	})

	t.Run("Error - Image policy violations", func(t *testing.T) {
		f := setup(t)

		files := []testutils.UploadFile{
			{Field: "fields[references][]", Filename: "a.gif", Content: testutils.GIF},
			{Field: "fields[references][]", Filename: "b.png", Content: testutils.SizedPNG(5 * 1024 * 1024)},
		}
		resp, err := testutils.MakeMultipartRequestWithFiles(f.env.App, "POST", "/v1/requests",
			f.formFields(f.design), files, f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		msgs, ok := result.Errors["references"].([]interface{})
		require.True(t, ok)
		assert.ElementsMatch(t, []interface{}{
			"Invalid file type. Allowed: jpg, png, webp",
			"File size exceeds 4MB",
		}, msgs)
	})

	t.Run("Error - Outsider has no business access", func(t *testing.T) {
		f := setup(t)

		resp, err := testutils.MakeMultipartRequestWithFiles(f.env.App, "POST", "/v1/requests",
			f.formFields(f.design), []testutils.UploadFile{pngFile("a.png")}, f.outsideToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
		testutils.AssertError(t, resp, "FORBIDDEN")
	})

	t.Run("Error - Unpublished type", func(t *testing.T) {
		f := setup(t)
		draft := testutils.CreateTestRequestType(t, f.env.DB, "Draft", 24, false, nil,
			testutils.FieldDef{Key: "title", Type: models.FieldText})

		resp, err := testutils.MakeRequest(f.env.App, "POST", "/v1/requests", map[string]interface{}{
			"request_type_id": draft.ID,
			"business_id":     f.biz.ID,
			"fields":          map[string]interface{}{"title": "x"},
		}, f.adminToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.Equal(t, "Request type is not available", result.Message)
	})

	t.Run("Success - JSON body without images", func(t *testing.T) {
		f := setup(t)
		brief := testutils.CreateTestRequestType(t, f.env.DB, "Brief", 48, true, nil,
			testutils.FieldDef{Key: "title", Type: models.FieldText, Required: true},
			testutils.FieldDef{Key: "channels", Type: models.FieldMultiselect, Options: `["ig","fb"]`})

		resp, err := testutils.MakeRequest(f.env.App, "POST", "/v1/requests", map[string]interface{}{
			"request_type_id": brief.ID,
			"business_id":     f.biz.ID,
			"fields":          map[string]interface{}{"title": "Hello", "channels": []string{"ig"}},
		}, f.ownerToken)
		require.NoError(t, err)
		require.Equal(t, 201, resp.Code, resp.Body.String())

		data := testutils.DataMap(t, resp)
		assert.Nil(t, data["assigned_team_id"])

		var channels models.RequestFieldValue
		require.NoError(t, f.env.DB.Where("field_key = ?", "channels").First(&channels).Error)
		assert.JSONEq(t, `["ig"]`, string(channels.ValueJSON))
	})

	t.Run("Error - Missing ids", func(t *testing.T) {
		f := setup(t)

		resp, err := testutils.MakeRequest(f.env.App, "POST", "/v1/requests", map[string]interface{}{
			"fields": map[string]interface{}{},
		}, f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})

	t.Run("Error - Storage failure rolls back everything", func(t *testing.T) {
		f := setup(t)
		flaky := &failingStorage{Storage: f.env.Storage, failOn: 2}
		storage.Default = flaky
		t.Cleanup(func() { storage.Default = f.env.Storage })

		resp, err := testutils.MakeMultipartRequestWithFiles(f.env.App, "POST", "/v1/requests",
			f.formFields(f.design), []testutils.UploadFile{pngFile("a.png"), pngFile("b.png")}, f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 500, resp.Code)
		testutils.AssertError(t, resp, "INTERNAL_ERROR")

		for _, model := range []interface{}{&models.Request{}, &models.RequestFieldValue{}, &models.Attachment{}} {
			var count int64
			f.env.DB.Unscoped().Model(model).Count(&count)
			assert.Zero(t, count, "%T", model)
		}

		assert.Equal(t, 2, flaky.stores)
		require.Len(t, flaky.deleted, 1)
		assert.Contains(t, flaky.deleted[0], "requests/")
		assert.False(t, f.env.Storage.Exists(flaky.deleted[0]))
		assert.Empty(t, f.env.Events.Named(events.RequestCreated))
	})

	t.Run("Error - Unauthenticated", func(t *testing.T) {
		f := setup(t)

		resp, err := testutils.MakeRequest(f.env.App, "POST", "/v1/requests", map[string]interface{}{}, "")
		require.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
	})
}

func TestSLAStability(t *testing.T) {
	f := setup(t)

	resp, err := testutils.MakeMultipartRequestWithFiles(f.env.App, "POST", "/v1/requests",
		f.formFields(f.design), []testutils.UploadFile{pngFile("a.png")}, f.ownerToken)
	require.NoError(t, err)
	require.Equal(t, 201, resp.Code)
	id := uint(testutils.DataMap(t, resp)["id"].(float64))

	var before models.Request
	require.NoError(t, f.env.DB.First(&before, id).Error)

	resp, err = testutils.MakeRequest(f.env.App, "PATCH", fmt.Sprintf("/v1/admin/request-types/%d", f.design.ID),
		map[string]interface{}{"sla_hours": 1}, f.adminToken)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Code, resp.Body.String())

	var after models.Request
	require.NoError(t, f.env.DB.First(&after, id).Error)
	assert.True(t, before.DueAt.Equal(*after.DueAt))
}

func TestListAndGetRequestHandlers(t *testing.T) {
	f := setup(t)
	db := f.env.DB
	mine := testutils.CreateTestRequest(t, db, f.design, f.biz, f.owner, &f.team.ID)
	theirs := testutils.CreateTestRequest(t, db, f.design, f.biz, f.member, nil)

	t.Run("Success - Client sees only own requests", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "GET", "/v1/requests", nil, f.ownerToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		list := testutils.DataList(t, resp)
		require.Len(t, list, 1)
		assert.Equal(t, float64(mine.ID), list[0].(map[string]interface{})["id"])
	})

	t.Run("Success - Staff sees team requests", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "GET", "/v1/requests", nil, f.staffToken)
		require.NoError(t, err)
		assert.Len(t, testutils.DataList(t, resp), 1)
	})

	t.Run("Success - Admin sees all with filters", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "GET", "/v1/requests?status=new&business_id="+
			strconv.FormatUint(uint64(f.biz.ID), 10), nil, f.adminToken)
		require.NoError(t, err)
		assert.Len(t, testutils.DataList(t, resp), 2)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		require.NotNil(t, result.Meta)
		assert.Equal(t, int64(2), result.Meta.Total)
	})

	t.Run("Success - Show with relations", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "GET", fmt.Sprintf("/v1/requests/%d", mine.ID), nil, f.ownerToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		data := testutils.DataMap(t, resp)
		rt := data["request_type"].(map[string]interface{})
		assert.Len(t, rt["fields"], 2)
		assert.NotNil(t, data["business"])
	})

	t.Run("Error - Client narrowing on show", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "GET", fmt.Sprintf("/v1/requests/%d", theirs.ID), nil, f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})

	t.Run("Error - Not found", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "GET", "/v1/requests/9999", nil, f.adminToken)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.Code)
		testutils.AssertError(t, resp, "NOT_FOUND")
	})
}

func TestUpdateRequestHandler(t *testing.T) {
	t.Run("Success - Status change emits one event", func(t *testing.T) {
		f := setup(t)
		req := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, &f.team.ID)

		resp, err := testutils.MakeRequest(f.env.App, "PATCH", fmt.Sprintf("/v1/requests/%d", req.ID),
			map[string]interface{}{"status": "in-progress", "due_at": "ignored"}, f.staffToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code, resp.Body.String())
		assert.Equal(t, "in-progress", testutils.DataMap(t, resp)["status"])

		changed := f.env.Events.Named(events.RequestStatusChanged)
		require.Len(t, changed, 1)
		assert.Equal(t, "new", changed[0].Payload["old_status"])
		assert.Equal(t, "in-progress", changed[0].Payload["new_status"])

		var log models.AuditLog
		require.NoError(t, f.env.DB.Where("action = ?", "request.updated").First(&log).Error)
		assert.JSONEq(t, `"new"`, jsonField(t, log.Before, "status"))
		assert.JSONEq(t, `"in-progress"`, jsonField(t, log.After, "status"))
	})

	t.Run("Success - Assignment change emits no status event", func(t *testing.T) {
		f := setup(t)
		req := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, nil)

		resp, err := testutils.MakeRequest(f.env.App, "PATCH", fmt.Sprintf("/v1/requests/%d", req.ID),
			map[string]interface{}{"assigned_user_id": f.staff.ID, "priority": "urgent"}, f.adminToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code, resp.Body.String())

		data := testutils.DataMap(t, resp)
		assert.Equal(t, float64(f.staff.ID), data["assigned_user_id"])
		assert.Equal(t, "urgent", data["priority"])
		assert.Empty(t, f.env.Events.Named(events.RequestStatusChanged))
	})

	t.Run("Success - Same status emits nothing", func(t *testing.T) {
		f := setup(t)
		req := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, nil)
		f.env.DB.Model(req).Update("status", "waiting")

		resp, err := testutils.MakeRequest(f.env.App, "PATCH", fmt.Sprintf("/v1/requests/%d", req.ID),
			map[string]interface{}{"status": "waiting"}, f.ownerToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
		assert.Empty(t, f.env.Events.Named(events.RequestStatusChanged))
	})

	t.Run("Error - Client who is not the creator", func(t *testing.T) {
		f := setup(t)
		req := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, nil)

		resp, err := testutils.MakeRequest(f.env.App, "PATCH", fmt.Sprintf("/v1/requests/%d", req.ID),
			map[string]interface{}{"status": "completed"}, f.memberToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)

		var reloaded models.Request
		f.env.DB.First(&reloaded, req.ID)
		assert.Equal(t, models.StatusNew, reloaded.Status)
	})

	t.Run("Error - Staff outside the assignment", func(t *testing.T) {
		f := setup(t)
		req := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, nil)

		resp, err := testutils.MakeRequest(f.env.App, "PATCH", fmt.Sprintf("/v1/requests/%d", req.ID),
			map[string]interface{}{"status": "completed"}, f.staffToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})

	t.Run("Error - Assigned staff outside the business", func(t *testing.T) {
		f := setup(t)
		stranger := testutils.CreateTestUser(t, f.env.DB, "stranger@example.com", "password123", models.RoleStaff)
		require.NoError(t, f.env.DB.Model(f.team).Association("Members").Append(stranger))
		req := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, &f.team.ID)
		f.env.DB.Model(req).Update("assigned_user_id", stranger.ID)
		token := testutils.GetAuthToken(t, stranger.ID, stranger.Role)

		resp, err := testutils.MakeRequest(f.env.App, "PATCH", fmt.Sprintf("/v1/requests/%d", req.ID),
			map[string]interface{}{"status": "completed"}, token)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)

		resp, err = testutils.MakeRequest(f.env.App, "GET", fmt.Sprintf("/v1/requests/%d", req.ID), nil, token)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)

		var reloaded models.Request
		f.env.DB.First(&reloaded, req.ID)
		assert.Equal(t, models.StatusNew, reloaded.Status)
	})

	t.Run("Error - Invalid values", func(t *testing.T) {
		f := setup(t)
		req := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, nil)

		resp, err := testutils.MakeRequest(f.env.App, "PATCH", fmt.Sprintf("/v1/requests/%d", req.ID),
			map[string]interface{}{"status": "archived", "priority": "critical", "assigned_team_id": 999}, f.adminToken)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		require.NotNil(t, result.Error)
		details := result.Error.Details.(map[string]interface{})
		assert.Contains(t, details, "status")
		assert.Contains(t, details, "priority")
		assert.Contains(t, details, "assigned_team_id")
	})
}

func TestDeleteRequestHandler(t *testing.T) {
	f := setup(t)
	req := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, nil)

	t.Run("Error - Other client", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "DELETE", fmt.Sprintf("/v1/requests/%d", req.ID), nil, f.memberToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})

	t.Run("Success - Creator soft deletes", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "DELETE", fmt.Sprintf("/v1/requests/%d", req.ID), nil, f.ownerToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		var count int64
		f.env.DB.Model(&models.Request{}).Where("id = ?", req.ID).Count(&count)
		assert.Zero(t, count)
		f.env.DB.Unscoped().Model(&models.Request{}).Where("id = ?", req.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})
}

func TestBulkRequestsHandler(t *testing.T) {
	t.Run("Error - Mixed ownership rejects the whole batch", func(t *testing.T) {
		f := setup(t)
		a := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, nil)
		b := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.member, nil)

		resp, err := testutils.MakeRequest(f.env.App, "POST", "/v1/requests/bulk", map[string]interface{}{
			"action": "update",
			"ids":    []uint{a.ID, b.ID},
			"data":   map[string]interface{}{"status": "completed"},
		}, f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		details := result.Error.Details.(map[string]interface{})
		assert.Equal(t, []interface{}{float64(b.ID)}, details["unauthorized_ids"])

		var reloaded models.Request
		f.env.DB.First(&reloaded, a.ID)
		assert.Equal(t, models.StatusNew, reloaded.Status)
	})

	t.Run("Success - Bulk update by staff on team requests", func(t *testing.T) {
		f := setup(t)
		a := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, &f.team.ID)
		b := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.member, &f.team.ID)

		resp, err := testutils.MakeRequest(f.env.App, "POST", "/v1/requests/bulk", map[string]interface{}{
			"action": "update",
			"ids":    []uint{a.ID, b.ID, a.ID},
			"data":   map[string]interface{}{"status": "completed", "due_at": "ignored"},
		}, f.staffToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code, resp.Body.String())

		data := testutils.DataMap(t, resp)
		assert.Equal(t, float64(2), data["updated_count"])

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.Equal(t, "2 request(s) updated successfully", result.Message)
		assert.Len(t, f.env.Events.Named(events.RequestStatusChanged), 2)
	})

	t.Run("Error - No mutable keys", func(t *testing.T) {
		f := setup(t)
		a := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, nil)

		resp, err := testutils.MakeRequest(f.env.App, "POST", "/v1/requests/bulk", map[string]interface{}{
			"action": "update",
			"ids":    []uint{a.ID},
			"data":   map[string]interface{}{"title": "nope"},
		}, f.adminToken)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.Equal(t, "No valid fields to update", result.Message)
	})

	t.Run("Success - Bulk delete", func(t *testing.T) {
		f := setup(t)
		a := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, nil)
		b := testutils.CreateTestRequest(t, f.env.DB, f.design, f.biz, f.owner, nil)

		resp, err := testutils.MakeRequest(f.env.App, "POST", "/v1/requests/bulk", map[string]interface{}{
			"action": "delete",
			"ids":    []uint{a.ID, b.ID},
		}, f.ownerToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
		assert.Equal(t, float64(2), testutils.DataMap(t, resp)["deleted_count"])

		var count int64
		f.env.DB.Model(&models.Request{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Error - Unknown ids and bad action", func(t *testing.T) {
		f := setup(t)

		resp, err := testutils.MakeRequest(f.env.App, "POST", "/v1/requests/bulk", map[string]interface{}{
			"action": "delete",
			"ids":    []uint{424242},
		}, f.adminToken)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)

		resp, err = testutils.MakeRequest(f.env.App, "POST", "/v1/requests/bulk", map[string]interface{}{
			"action": "archive",
			"ids":    []uint{1},
		}, f.adminToken)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
	})
}

func jsonField(t *testing.T, raw []byte, key string) string {
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return string(m[key])
}
