package server

import (
	"time"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/attachment"
	"github.com/Kyz7/requestdesk/internal/audit"
	"github.com/Kyz7/requestdesk/internal/auth"
	"github.com/Kyz7/requestdesk/internal/business"
	"github.com/Kyz7/requestdesk/internal/comment"
	"github.com/Kyz7/requestdesk/internal/feedback"
	"github.com/Kyz7/requestdesk/internal/mcp"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/notification"
	"github.com/Kyz7/requestdesk/internal/opmp"
	"github.com/Kyz7/requestdesk/internal/request"
	"github.com/Kyz7/requestdesk/internal/requesttype"
	"github.com/Kyz7/requestdesk/internal/search"
	"github.com/Kyz7/requestdesk/internal/setting"
	"github.com/Kyz7/requestdesk/internal/team"
	"github.com/Kyz7/requestdesk/internal/user"
	"github.com/Kyz7/requestdesk/internal/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":  status,
			"message": "Request desk API is running",
		})
	})

	v1 := app.Group("/v1")
	protected := auth.JWTProtected()
	adminOnly := auth.RoleProtected(models.RoleAdmin)

	// ==========================================
	// AUTH
	// ==========================================
	authGroup := v1.Group("/auth")
	authGroup.Use(limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Minute,
	}))
	authGroup.Post("/register", auth.RegisterHandler)
	authGroup.Post("/login", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), auth.LoginHandler)
	authGroup.Post("/refresh", auth.RefreshHandler)
	authGroup.Post("/forgot-password", auth.ForgotPasswordHandler)
	authGroup.Post("/reset-password", auth.ResetPasswordHandler)
	authGroup.Get("/google/login", auth.GoogleLogin)
	authGroup.Get("/google/callback", auth.GoogleCallback)
	authGroup.Post("/logout", protected, auth.LogoutHandler)
	authGroup.Get("/me", protected, auth.MeHandler)

	// ==========================================
	// BUSINESSES, MCP, OPMP
	// ==========================================
	businesses := v1.Group("/businesses", protected)
	businesses.Get("/", business.ListBusinessesHandler)
	businesses.Post("/", business.CreateBusinessHandler)
	businesses.Get("/:id", access.BusinessFromParam("id"), business.GetBusinessHandler)
	businesses.Patch("/:id", business.UpdateBusinessHandler)
	businesses.Delete("/:id", business.DeleteBusinessHandler)
	businesses.Post("/:id/members", business.AddMemberHandler)
	businesses.Delete("/:id/members/:user_id", business.RemoveMemberHandler)

	scoped := businesses.Group("/:business_id", access.BusinessFromParam("business_id"))
	scoped.Get("/mcps", mcp.ListMcpsHandler)
	scoped.Post("/mcps", adminOnly, mcp.CreateMcpHandler)
	scoped.Get("/opmp", opmp.GetOpmpHandler)
	scoped.Patch("/opmp", adminOnly, opmp.UpdateOpmpHandler)
	scoped.Get("/opmp/versions", opmp.ListVersionsHandler)

	v1.Post("/mcps/:mcp_id/posts", protected, adminOnly, mcp.CreatePostHandler)
	v1.Patch("/mcp-posts/:id", protected, mcp.UpdatePostHandler)

	// ==========================================
	// REQUEST TYPES (client view)
	// ==========================================
	types := v1.Group("/request-types", protected)
	types.Get("/", requesttype.ListPublishedRequestTypesHandler)
	types.Get("/:id/schema", requesttype.RequestTypeSchemaHandler)

	// ==========================================
	// REQUESTS, COMMENTS, ATTACHMENTS
	// ==========================================
	requests := v1.Group("/requests", protected)
	requests.Get("/", request.ListRequestsHandler)
	requests.Post("/", request.CreateRequestHandler)
	requests.Post("/bulk", request.BulkRequestsHandler)
	requests.Get("/:id", request.GetRequestHandler)
	requests.Patch("/:id", request.UpdateRequestHandler)
	requests.Delete("/:id", request.DeleteRequestHandler)

	requests.Get("/:request_id/comments", comment.ListCommentsHandler)
	requests.Post("/:request_id/comments", comment.CreateCommentHandler)
	v1.Patch("/comments/:id", protected, comment.UpdateCommentHandler)
	v1.Delete("/comments/:id", protected, comment.DeleteCommentHandler)

	requests.Get("/:request_id/attachments", attachment.ListAttachmentsHandler)
	requests.Post("/:request_id/attachments", attachment.UploadAttachmentHandler)
	v1.Get("/attachments/:id/download", protected, attachment.DownloadAttachmentHandler)
	v1.Delete("/attachments/:id", protected, attachment.DeleteAttachmentHandler)

	// ==========================================
	// FEEDBACK, NOTIFICATIONS, SEARCH
	// ==========================================
	v1.Post("/feedback", protected, feedback.SubmitFeedbackHandler)

	notifications := v1.Group("/notifications", protected)
	notifications.Get("/", notification.ListNotificationsHandler)
	notifications.Get("/unread-count", notification.UnreadCountHandler)
	notifications.Patch("/read-all", notification.MarkAllReadHandler)
	notifications.Patch("/:id/read", notification.MarkReadHandler)
	notifications.Delete("/:id", notification.DeleteNotificationHandler)

	v1.Get("/search", protected, search.SearchHandler)

	// ==========================================
	// ADMIN
	// ==========================================
	admin := v1.Group("/admin", protected, adminOnly)

	admin.Get("/request-types", requesttype.AdminListRequestTypesHandler)
	admin.Post("/request-types", requesttype.CreateRequestTypeHandler)
	admin.Get("/request-types/:id", requesttype.GetRequestTypeHandler)
	admin.Patch("/request-types/:id", requesttype.UpdateRequestTypeHandler)
	admin.Delete("/request-types/:id", requesttype.DeleteRequestTypeHandler)

	admin.Get("/teams", team.ListTeamsHandler)
	admin.Post("/teams", team.CreateTeamHandler)
	admin.Get("/teams/:id", team.GetTeamHandler)
	admin.Patch("/teams/:id", team.UpdateTeamHandler)
	admin.Delete("/teams/:id", team.DeleteTeamHandler)
	admin.Post("/teams/:id/assign-users", team.AssignUsersHandler)

	admin.Get("/users", user.ListUsersHandler)
	admin.Post("/users", user.CreateUserHandler)
	admin.Get("/users/:id", user.GetUserHandler)
	admin.Patch("/users/:id", user.UpdateUserHandler)
	admin.Delete("/users/:id", user.DeleteUserHandler)

	admin.Get("/settings", setting.ListSettingsHandler)
	admin.Get("/settings/:key", setting.GetSettingHandler)
	admin.Put("/settings/:key", setting.UpdateSettingHandler)

	admin.Get("/audit-logs", audit.ListAuditLogsHandler)
	admin.Get("/audit-logs/:id", audit.GetAuditLogHandler)

	admin.Get("/webhooks/deliveries", webhook.ListDeliveriesHandler)
	admin.Post("/webhooks/deliveries/:id/retry", webhook.RetryDeliveryHandler)
}
