package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/events"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/server"
	"github.com/Kyz7/requestdesk/internal/storage"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PNG is a minimal payload that sniffs as image/png.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// GIF sniffs as image/gif.
var GIF = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00,")

// JPEG sniffs as image/jpeg.
var JPEG = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")

// SizedPNG pads the PNG sample to n bytes.
func SizedPNG(n int) []byte {
	out := make([]byte, n)
	copy(out, PNG)
	return out
}

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(models.All()...)
	require.NoError(t, err, "Failed to migrate test database")

	return db
}

// Env is a wired application over an in-memory database, a temp upload dir and a
// recorder subscribed to every event.
type Env struct {
	App     *fiber.App
	DB      *gorm.DB
	Storage *storage.Local
	Events  *events.Recorder
}

func SetupTestEnv(t *testing.T) *Env {
	db := TestDB(t)
	database.DB = db

	local, err := storage.NewLocal(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err, "Failed to initialize storage")
	storage.Default = local

	events.Default.Clear()
	rec := &events.Recorder{}
	events.Subscribe("*", rec.Handle)
	t.Cleanup(events.Default.Clear)

	return &Env{
		App:     server.New(db),
		DB:      db,
		Storage: local,
		Events:  rec,
	}
}

func SetupTestApp(t *testing.T) *fiber.App {
	return SetupTestEnv(t).App
}

func CreateTestUser(t *testing.T, db *gorm.DB, email, password, role string) *models.User {
	hashedPassword, err := utils.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Password: hashedPassword,
		Provider: "local",
		Role:     role,
		Status:   models.UserStatusActive,
	}

	err = db.Create(user).Error
	require.NoError(t, err, "Failed to create test user")
	return user
}

// CreateTestBusiness creates a business owned by owner with optional pivot members.
func CreateTestBusiness(t *testing.T, db *gorm.DB, owner *models.User, name string, members ...*models.User) *models.Business {
	b := &models.Business{OwnerUserID: owner.ID, Name: name, Status: models.BusinessStatusActive}
	require.NoError(t, db.Create(b).Error)

	for _, m := range members {
		require.NoError(t, db.Create(&models.BusinessUser{
			BusinessID:     b.ID,
			UserID:         m.ID,
			RoleInBusiness: "member",
		}).Error)
	}
	return b
}

func CreateTestTeam(t *testing.T, db *gorm.DB, name string, members ...*models.User) *models.Team {
	team := &models.Team{Name: name}
	require.NoError(t, db.Create(team).Error)
	if len(members) > 0 {
		require.NoError(t, db.Model(team).Association("Members").Append(members))
	}
	return team
}

// FieldDef is a compact field definition for CreateTestRequestType. Options is raw JSON.
type FieldDef struct {
	Key      string
	Label    string
	Type     models.FieldType
	Required bool
	Options  string
}

func CreateTestRequestType(t *testing.T, db *gorm.DB, name string, slaHours int, published bool, defaultTeam *models.Team, fields ...FieldDef) *models.RequestType {
	rt := &models.RequestType{Name: name, SLAHours: slaHours}
	if defaultTeam != nil {
		rt.DefaultTeamID = &defaultTeam.ID
	}
	require.NoError(t, db.Create(rt).Error)
	// gorm skips false for fields with a default tag on create.
	require.NoError(t, db.Model(rt).Update("is_published", published).Error)
	rt.IsPublished = published

	for i, f := range fields {
		label := f.Label
		if label == "" {
			label = f.Key
		}
		field := models.RequestTypeField{
			RequestTypeID: rt.ID,
			FieldKey:      f.Key,
			Label:         label,
			Type:          f.Type,
			Required:      f.Required,
			Order:         i,
		}
		if f.Options != "" {
			field.Options = datatypes.JSON(f.Options)
		}
		require.NoError(t, db.Create(&field).Error)
		rt.Fields = append(rt.Fields, field)
	}
	return rt
}

// CreateTestRequest inserts a request row directly, bypassing the form engine.
func CreateTestRequest(t *testing.T, db *gorm.DB, rt *models.RequestType, b *models.Business, creator *models.User, teamID *uint) *models.Request {
	req := &models.Request{
		RequestTypeID:  rt.ID,
		BusinessID:     b.ID,
		CreatedBy:      creator.ID,
		AssignedTeamID: teamID,
		Status:         models.StatusNew,
		Priority:       models.PriorityMedium,
	}
	require.NoError(t, db.Create(req).Error)
	return req
}

func GetAuthToken(t *testing.T, userID uint, role string) string {
	token, err := utils.GenerateJWT(userID, role)
	assert.NoError(t, err, "Failed to generate test token")
	return token
}

func send(app *fiber.App, method, url string, body io.Reader, contentType, token string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(method, url, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode
	for k, v := range resp.Header {
		for _, val := range v {
			rec.Header().Add(k, val)
		}
	}
	_, _ = io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}
	return send(app, method, url, bodyReader, "application/json", token)
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.Unmarshal(resp.Body.Bytes(), v)
	if err != nil {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    interface{}            `json:"data"`
	Error   *ErrorDetail           `json:"error"`
	Errors  map[string]interface{} `json:"errors"`
	Meta    *Meta                  `json:"meta"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	if assert.NotNil(t, result.Error, "Expected error object") {
		assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	}
}

// DataMap decodes the data member of an envelope as an object.
func DataMap(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok, "Expected object data, got %s", resp.Body.String())
	return data
}

// DataList decodes the data member of an envelope as an array.
func DataList(t *testing.T, resp *httptest.ResponseRecorder) []interface{} {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	data, ok := result.Data.([]interface{})
	require.True(t, ok, "Expected array data, got %s", resp.Body.String())
	return data
}

func MakeMultipartRequest(app *fiber.App, method, url string, fields map[string]string, token string) (*httptest.ResponseRecorder, error) {
	return MakeMultipartRequestWithFiles(app, method, url, fields, nil, token)
}

// UploadFile is one file part of a multipart request.
type UploadFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

func MakeMultipartRequestWithFiles(app *fiber.App, method, url string, fields map[string]string, files []UploadFile, token string) (*httptest.ResponseRecorder, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, val := range fields {
		if err := writer.WriteField(key, val); err != nil {
			return nil, err
		}
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.Field, f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, err
		}
	}

	contentType := writer.FormDataContentType()
	writer.Close()

	return send(app, method, url, body, contentType, token)
}

// FileHeaders parses files into multipart headers keyed by part name, the way a
// handler would see them.
func FileHeaders(t *testing.T, files ...UploadFile) map[string][]*multipart.FileHeader {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.Field, f.Filename))
		h.Set("Content-Type", "application/octet-stream")
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(64 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File
}

func MakeRedirectRequest(app *fiber.App, method, url string, token string) (*httptest.ResponseRecorder, error) {
	return send(app, method, url, nil, "", token)
}
