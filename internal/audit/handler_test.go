package audit_test

import (
	"fmt"
	"testing"

	"github.com/Kyz7/requestdesk/internal/audit"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogHandlers(t *testing.T) {
	env := testutils.SetupTestEnv(t)
	admin := testutils.CreateTestUser(t, env.DB, "admin@example.com", "password123", models.RoleAdmin)
	staff := testutils.CreateTestUser(t, env.DB, "staff@example.com", "password123", models.RoleStaff)
	token := testutils.GetAuthToken(t, admin.ID, admin.Role)

	entity := uint(3)
	for _, action := range []string{audit.ActionRequestCreated, audit.ActionRequestUpdated, audit.ActionTeamCreated} {
		require.NoError(t, audit.Record(env.DB, audit.Entry{
			ActorID:    &admin.ID,
			Action:     action,
			EntityType: "request",
			EntityID:   &entity,
		}))
	}

	t.Run("Success - List newest first", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/v1/admin/audit-logs", nil, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		list := testutils.DataList(t, resp)
		require.Len(t, list, 3)
		assert.Equal(t, audit.ActionTeamCreated, list[0].(map[string]interface{})["action"])
	})

	t.Run("Success - Filter by action", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/v1/admin/audit-logs?action="+audit.ActionRequestUpdated, nil, token)
		require.NoError(t, err)
		assert.Len(t, testutils.DataList(t, resp), 1)
	})

	t.Run("Error - Malformed date", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/v1/admin/audit-logs?start_date=yesterday", nil, token)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
	})

	t.Run("Success - Show with actor", func(t *testing.T) {
		var first models.AuditLog
		require.NoError(t, env.DB.Order("id ASC").First(&first).Error)

		resp, err := testutils.MakeRequest(env.App, "GET", fmt.Sprintf("/v1/admin/audit-logs/%d", first.ID), nil, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		data := testutils.DataMap(t, resp)
		assert.Equal(t, "admin@example.com", data["actor"].(map[string]interface{})["email"])
	})

	t.Run("Error - Not found", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/v1/admin/audit-logs/9999", nil, token)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.Code)
	})

	t.Run("Error - Staff is rejected", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/v1/admin/audit-logs", nil, testutils.GetAuthToken(t, staff.ID, staff.Role))
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})
}
