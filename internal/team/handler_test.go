package team_test

import (
	"fmt"
	"testing"

	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamHandlers(t *testing.T) {
	env := testutils.SetupTestEnv(t)
	admin := testutils.CreateTestUser(t, env.DB, "admin@example.com", "password123", models.RoleAdmin)
	alice := testutils.CreateTestUser(t, env.DB, "alice@example.com", "password123", models.RoleStaff)
	bob := testutils.CreateTestUser(t, env.DB, "bob@example.com", "password123", models.RoleStaff)
	token := testutils.GetAuthToken(t, admin.ID, admin.Role)
	staffToken := testutils.GetAuthToken(t, alice.ID, alice.Role)

	var teamID uint

	t.Run("Success - Create with members", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/v1/admin/teams", map[string]interface{}{
			"name":        "Design",
			"description": "Visual work",
			"user_ids":    []uint{alice.ID, bob.ID},
		}, token)
		require.NoError(t, err)
		require.Equal(t, 201, resp.Code, resp.Body.String())

		data := testutils.DataMap(t, resp)
		teamID = uint(data["id"].(float64))
		assert.Len(t, data["members"], 2)
	})

	t.Run("Error - Unknown member", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/v1/admin/teams", map[string]interface{}{
			"name":     "Ghosts",
			"user_ids": []uint{alice.ID, 999},
		}, token)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)

		var count int64
		env.DB.Model(&models.Team{}).Where("name = ?", "Ghosts").Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Success - Assign users replaces membership", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", fmt.Sprintf("/v1/admin/teams/%d/assign-users", teamID),
			map[string]interface{}{"user_ids": []uint{bob.ID}}, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		members := testutils.DataMap(t, resp)["members"].([]interface{})
		require.Len(t, members, 1)
		assert.Equal(t, float64(bob.ID), members[0].(map[string]interface{})["id"])
	})

	t.Run("Success - Show with stats", func(t *testing.T) {
		owner := testutils.CreateTestUser(t, env.DB, "owner@example.com", "password123", models.RoleClient)
		biz := testutils.CreateTestBusiness(t, env.DB, owner, "Acme")
		rt := testutils.CreateTestRequestType(t, env.DB, "Brief", 24, true, nil)
		testutils.CreateTestRequest(t, env.DB, rt, biz, owner, &teamID)
		done := testutils.CreateTestRequest(t, env.DB, rt, biz, owner, &teamID)
		env.DB.Model(done).Update("status", models.StatusCompleted)

		resp, err := testutils.MakeRequest(env.App, "GET", fmt.Sprintf("/v1/admin/teams/%d", teamID), nil, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		data := testutils.DataMap(t, resp)
		assert.Equal(t, float64(1), data["members_count"])
		assert.Equal(t, float64(2), data["requests_count"])
		assert.Equal(t, float64(1), data["active_requests_count"])
		assert.Equal(t, float64(1), data["completed_requests_count"])
	})

	t.Run("Error - Delete with active requests", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "DELETE", fmt.Sprintf("/v1/admin/teams/%d", teamID), nil, token)
		require.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.Contains(t, result.Message, "1 active request(s)")
	})

	t.Run("Error - Delete while default for a type", func(t *testing.T) {
		other := testutils.CreateTestTeam(t, env.DB, "Copy")
		testutils.CreateTestRequestType(t, env.DB, "Copywriting", 24, true, other)

		resp, err := testutils.MakeRequest(env.App, "DELETE", fmt.Sprintf("/v1/admin/teams/%d", other.ID), nil, token)
		require.NoError(t, err)
		assert.Equal(t, 409, resp.Code)
	})

	t.Run("Success - Update and delete idle team", func(t *testing.T) {
		idle := testutils.CreateTestTeam(t, env.DB, "Idle", alice)

		resp, err := testutils.MakeRequest(env.App, "PATCH", fmt.Sprintf("/v1/admin/teams/%d", idle.ID),
			map[string]interface{}{"name": "Renamed"}, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
		assert.Equal(t, "Renamed", testutils.DataMap(t, resp)["name"])

		resp, err = testutils.MakeRequest(env.App, "DELETE", fmt.Sprintf("/v1/admin/teams/%d", idle.ID), nil, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		var links int64
		env.DB.Table(models.TeamUserTable).Where("team_id = ?", idle.ID).Count(&links)
		assert.Zero(t, links)
	})

	t.Run("Success - List", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/v1/admin/teams", nil, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
		assert.Len(t, testutils.DataList(t, resp), 2)
	})

	t.Run("Error - Staff forbidden", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/v1/admin/teams", nil, staffToken)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})

	t.Run("Error - Not found", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/v1/admin/teams/999", nil, token)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.Code)
	})
}
