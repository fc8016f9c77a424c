package feedback_test

import (
	"testing"

	"github.com/Kyz7/requestdesk/internal/events"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitFeedbackHandler(t *testing.T) {
	env := testutils.SetupTestEnv(t)
	client := testutils.CreateTestUser(t, env.DB, "client@example.com", "password123", models.RoleClient)
	token := testutils.GetAuthToken(t, client.ID, client.Role)

	t.Run("Success - Stores sanitized feedback", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/v1/feedback", map[string]interface{}{
			"subject":  "<script>x</script>Slow uploads",
			"category": "performance",
			"message":  "<p>Uploads <b>stall</b></p><script>alert(1)</script>",
			"rating":   4,
		}, token)
		require.NoError(t, err)
		require.Equal(t, 201, resp.Code)

		data := testutils.DataMap(t, resp)
		assert.Equal(t, "Slow uploads", data["subject"])
		assert.Equal(t, "<p>Uploads <b>stall</b></p>", data["message"])
		assert.Equal(t, float64(client.ID), data["user_id"])

		fired := env.Events.Named(events.FeedbackSubmitted)
		require.Len(t, fired, 1)
		assert.Equal(t, "performance", fired[0].Payload["category"])
	})

	t.Run("Error - Rating out of range", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/v1/feedback", map[string]interface{}{
			"subject": "Hi",
			"message": "Hello",
			"rating":  9,
		}, token)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
	})

	t.Run("Error - Missing message", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/v1/feedback", map[string]interface{}{"subject": "Hi"}, token)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
	})

	t.Run("Error - Unauthenticated", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "POST", "/v1/feedback", map[string]interface{}{"subject": "Hi", "message": "x"}, "")
		require.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
	})
}
