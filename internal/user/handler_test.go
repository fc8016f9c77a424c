package user_test

import (
	"fmt"
	"testing"

	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/testutils"
	"github.com/Kyz7/requestdesk/internal/user"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandlers(t *testing.T) {
	env := testutils.SetupTestEnv(t)
	db := env.DB

	admin := testutils.CreateTestUser(t, db, "admin@example.com", "password123", models.RoleAdmin)
	staff := testutils.CreateTestUser(t, db, "staff@example.com", "password123", models.RoleStaff)
	client := testutils.CreateTestUser(t, db, "client@example.com", "password123", models.RoleClient)
	token := testutils.GetAuthToken(t, admin.ID, admin.Role)

	t.Run("Success - Create user", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/v1/admin/users", map[string]interface{}{
			"name":     "<i>Nina</i>",
			"email":    "Nina@Example.com",
			"password": "password123",
			"role":     "staff",
		}, token)
		require.NoError(t, err)
		require.Equal(t, 201, resp.Code)

		data := testutils.DataMap(t, resp)
		assert.Equal(t, "Nina", data["name"])
		assert.Equal(t, "nina@example.com", data["email"])
		assert.Equal(t, "active", data["status"])
		assert.NotContains(t, data, "password")

		var count int64
		db.Model(&models.AuditLog{}).Where("action = ?", "user.created").Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Error - Duplicate email", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/v1/admin/users", map[string]interface{}{
			"name":     "Copy",
			"email":    "staff@example.com",
			"password": "password123",
			"role":     "staff",
		}, token)
		require.NoError(t, err)
		assert.Equal(t, 409, resp.Code)
	})

	t.Run("Error - Invalid role", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/v1/admin/users", map[string]interface{}{
			"name":     "Eve",
			"email":    "eve@example.com",
			"password": "password123",
			"role":     "superuser",
		}, token)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
	})

	t.Run("Error - Non-admin is rejected", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/v1/admin/users", nil, testutils.GetAuthToken(t, staff.ID, staff.Role))
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})

	t.Run("Success - List with filters", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/v1/admin/users?role=client", nil, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
		list := testutils.DataList(t, resp)
		require.Len(t, list, 1)
		assert.Equal(t, "client@example.com", list[0].(map[string]interface{})["email"])

		resp, err = testutils.MakeRequest(env.App, "GET", "/v1/admin/users?q=NINA", nil, token)
		require.NoError(t, err)
		assert.Len(t, testutils.DataList(t, resp), 1)
	})

	t.Run("Success - Password change revokes refresh tokens", func(t *testing.T) {
		refresh, err := utils.GenerateRefreshToken(client.ID)
		require.NoError(t, err)

		resp, err := testutils.MakeRequest(env.App, "PATCH", fmt.Sprintf("/v1/admin/users/%d", client.ID),
			map[string]interface{}{"password": "newpassword1"}, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		assert.False(t, utils.ValidateRefreshToken(client.ID, refresh))

		var stored models.User
		require.NoError(t, db.First(&stored, client.ID).Error)
		assert.True(t, utils.CheckPasswordHash("newpassword1", stored.Password))
	})

	t.Run("Success - Suspend revokes refresh tokens", func(t *testing.T) {
		refresh, err := utils.GenerateRefreshToken(staff.ID)
		require.NoError(t, err)

		resp, err := testutils.MakeRequest(env.App, "PATCH", fmt.Sprintf("/v1/admin/users/%d", staff.ID),
			map[string]interface{}{"status": "suspended"}, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
		assert.Equal(t, "suspended", testutils.DataMap(t, resp)["status"])
		assert.False(t, utils.ValidateRefreshToken(staff.ID, refresh))
	})

	t.Run("Error - Admin cannot demote self", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "PATCH", fmt.Sprintf("/v1/admin/users/%d", admin.ID),
			map[string]interface{}{"role": "client"}, token)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		resp, err = testutils.MakeRequest(env.App, "DELETE", fmt.Sprintf("/v1/admin/users/%d", admin.ID), nil, token)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
	})

	t.Run("Success - Admin may rename self", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "PATCH", fmt.Sprintf("/v1/admin/users/%d", admin.ID),
			map[string]interface{}{"name": "Root", "role": "admin"}, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
		assert.Equal(t, "Root", testutils.DataMap(t, resp)["name"])
	})

	t.Run("Error - Email taken on update", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "PATCH", fmt.Sprintf("/v1/admin/users/%d", client.ID),
			map[string]interface{}{"email": "admin@example.com"}, token)
		require.NoError(t, err)
		assert.Equal(t, 409, resp.Code)
	})

	t.Run("Success - Delete user", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "DELETE", fmt.Sprintf("/v1/admin/users/%d", client.ID), nil, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		resp, err = testutils.MakeRequest(env.App, "GET", fmt.Sprintf("/v1/admin/users/%d", client.ID), nil, token)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.Code)
	})
}

func TestEnsureAdmin(t *testing.T) {
	db := testutils.TestDB(t)

	t.Run("Success - Seeds once", func(t *testing.T) {
		require.NoError(t, user.EnsureAdmin(db, "Boss@Example.com", "password123"))
		require.NoError(t, user.EnsureAdmin(db, "boss@example.com", "password123"))

		var admins []models.User
		db.Where("role = ?", models.RoleAdmin).Find(&admins)
		require.Len(t, admins, 1)
		assert.Equal(t, "boss@example.com", admins[0].Email)
	})

	t.Run("Success - No credentials is a no-op", func(t *testing.T) {
		require.NoError(t, user.EnsureAdmin(db, "", ""))
	})
}
