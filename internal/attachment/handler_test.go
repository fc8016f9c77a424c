package attachment_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	env        *testutils.Env
	req        *models.Request
	ownerToken string
	staffToken string
	otherToken string
}

func setup(t *testing.T) *fixture {
	env := testutils.SetupTestEnv(t)
	db := env.DB

	owner := testutils.CreateTestUser(t, db, "owner@example.com", "password123", models.RoleClient)
	staff := testutils.CreateTestUser(t, db, "staff@example.com", "password123", models.RoleStaff)
	other := testutils.CreateTestUser(t, db, "other@example.com", "password123", models.RoleClient)

	team := testutils.CreateTestTeam(t, db, "Design", staff)
	biz := testutils.CreateTestBusiness(t, db, owner, "Acme", staff)
	rt := testutils.CreateTestRequestType(t, db, "Brief", 24, true, nil)

	return &fixture{
		env:        env,
		req:        testutils.CreateTestRequest(t, db, rt, biz, owner, &team.ID),
		ownerToken: testutils.GetAuthToken(t, owner.ID, owner.Role),
		staffToken: testutils.GetAuthToken(t, staff.ID, staff.Role),
		otherToken: testutils.GetAuthToken(t, other.ID, other.Role),
	}
}

func (f *fixture) upload(t *testing.T, token string, file testutils.UploadFile) map[string]interface{} {
	resp, err := testutils.MakeMultipartRequestWithFiles(f.env.App, "POST",
		fmt.Sprintf("/v1/requests/%d/attachments", f.req.ID), nil, []testutils.UploadFile{file}, token)
	require.NoError(t, err)
	require.Equal(t, 201, resp.Code, resp.Body.String())
	return testutils.DataMap(t, resp)
}

func TestUploadAttachmentHandler(t *testing.T) {
	t.Run("Success - Stored under the request directory", func(t *testing.T) {
		f := setup(t)

		data := f.upload(t, f.ownerToken, testutils.UploadFile{
			Field: "file", Filename: "brief.png", ContentType: "application/octet-stream", Content: testutils.PNG,
		})
		assert.Equal(t, "brief.png", data["file_name"])
		assert.Equal(t, "image/png", data["mime_type"])
		assert.Equal(t, float64(len(testutils.PNG)), data["size"])

		path := data["file_path"].(string)
		assert.True(t, strings.HasPrefix(path, fmt.Sprintf("requests/%d/", f.req.ID)))
		assert.True(t, strings.HasSuffix(path, ".png"))
		assert.True(t, f.env.Storage.Exists(path))
		assert.Contains(t, data["url"], "http://localhost/uploads/")
	})

	t.Run("Error - Missing file", func(t *testing.T) {
		f := setup(t)

		resp, err := testutils.MakeMultipartRequest(f.env.App, "POST",
			fmt.Sprintf("/v1/requests/%d/attachments", f.req.ID), map[string]string{"note": "x"}, f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
	})

	t.Run("Error - Too large", func(t *testing.T) {
		f := setup(t)

		resp, err := testutils.MakeMultipartRequestWithFiles(f.env.App, "POST",
			fmt.Sprintf("/v1/requests/%d/attachments", f.req.ID), nil,
			[]testutils.UploadFile{{Field: "file", Filename: "huge.png", Content: testutils.SizedPNG(11 * 1024 * 1024)}},
			f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		var count int64
		f.env.DB.Model(&models.Attachment{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Error - Outsider", func(t *testing.T) {
		f := setup(t)

		resp, err := testutils.MakeMultipartRequestWithFiles(f.env.App, "POST",
			fmt.Sprintf("/v1/requests/%d/attachments", f.req.ID), nil,
			[]testutils.UploadFile{{Field: "file", Filename: "a.png", Content: testutils.PNG}}, f.otherToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})
}

func TestListAndDownloadAttachments(t *testing.T) {
	f := setup(t)
	first := f.upload(t, f.ownerToken, testutils.UploadFile{Field: "file", Filename: "one.png", Content: testutils.PNG})
	second := f.upload(t, f.staffToken, testutils.UploadFile{Field: "file", Filename: "two.jpg", Content: testutils.JPEG})

	t.Run("Success - Newest first", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "GET", fmt.Sprintf("/v1/requests/%d/attachments", f.req.ID), nil, f.ownerToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		list := testutils.DataList(t, resp)
		require.Len(t, list, 2)
		assert.Equal(t, second["id"], list[0].(map[string]interface{})["id"])
		assert.NotEmpty(t, list[0].(map[string]interface{})["url"])
	})

	t.Run("Success - Download streams bytes", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "GET",
			fmt.Sprintf("/v1/attachments/%v/download", first["id"]), nil, f.staffToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
		assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
		assert.Contains(t, resp.Header().Get("Content-Disposition"), `filename="one.png"`)
		assert.Equal(t, testutils.PNG, resp.Body.Bytes())
	})

	t.Run("Error - Download when file is gone", func(t *testing.T) {
		require.NoError(t, f.env.Storage.Delete(second["file_path"].(string)))

		resp, err := testutils.MakeRequest(f.env.App, "GET",
			fmt.Sprintf("/v1/attachments/%v/download", second["id"]), nil, f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.Equal(t, "File not found", result.Message)
	})

	t.Run("Error - Outsider cannot download", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.env.App, "GET",
			fmt.Sprintf("/v1/attachments/%v/download", first["id"]), nil, f.otherToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})
}

func TestDeleteAttachmentHandler(t *testing.T) {
	t.Run("Error - Client cannot delete staff upload", func(t *testing.T) {
		f := setup(t)
		att := f.upload(t, f.staffToken, testutils.UploadFile{Field: "file", Filename: "a.png", Content: testutils.PNG})

		resp, err := testutils.MakeRequest(f.env.App, "DELETE", fmt.Sprintf("/v1/attachments/%v", att["id"]), nil, f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.Equal(t, "Unauthorized - You cannot delete this attachment", result.Message)
	})

	t.Run("Success - Staff deletes and file is removed", func(t *testing.T) {
		f := setup(t)
		att := f.upload(t, f.ownerToken, testutils.UploadFile{Field: "file", Filename: "a.png", Content: testutils.PNG})
		path := att["file_path"].(string)

		resp, err := testutils.MakeRequest(f.env.App, "DELETE", fmt.Sprintf("/v1/attachments/%v", att["id"]), nil, f.staffToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
		assert.False(t, f.env.Storage.Exists(path))

		resp, err = testutils.MakeRequest(f.env.App, "DELETE", fmt.Sprintf("/v1/attachments/%v", att["id"]), nil, f.staffToken)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.Code)
	})

	t.Run("Success - Client deletes own upload", func(t *testing.T) {
		f := setup(t)
		att := f.upload(t, f.ownerToken, testutils.UploadFile{Field: "file", Filename: "a.png", Content: testutils.PNG})

		resp, err := testutils.MakeRequest(f.env.App, "DELETE", fmt.Sprintf("/v1/attachments/%v", att["id"]), nil, f.ownerToken)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Code)
	})
}
