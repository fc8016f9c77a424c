package server

import (
	"errors"
	"sync"
	"time"

	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/storage"
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// BodyLimit leaves room for multi-image request submissions.
const BodyLimit = 64 * 1024 * 1024

// The collectors register once on the default registry; every app shares them.
var metricsMiddleware = sync.OnceValue(func() *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New("requestdesk")
})

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	switch code {
	case fiber.StatusNotFound:
		return response.Error(c, code, response.CodeNotFound, "Route not found", nil)
	case fiber.StatusRequestEntityTooLarge:
		return response.Error(c, code, response.CodePayloadTooLarge, "Request body too large", nil)
	case fiber.StatusMethodNotAllowed:
		return response.Error(c, code, response.CodeMethodNotAllowed, "Method not allowed", nil)
	}
	if code < fiber.StatusInternalServerError {
		return response.Error(c, code, response.CodeRequestError, err.Error(), nil)
	}

	logging.Component("http").WithError(err).WithField("path", c.Path()).Error("Unhandled error")
	return response.InternalError(c, "Internal server error")
}

func New(db *gorm.DB) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             BodyLimit,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
		ReadTimeout:           60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS, PATCH",
	}))

	prom := metricsMiddleware()
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	if local, ok := storage.Default.(*storage.Local); ok {
		app.Static("/uploads", local.Root(), fiber.Static{
			Compress:  true,
			ByteRange: true,
			Browse:    false,
			MaxAge:    3600,
		})
	}

	SetupRoutes(app, db)

	return app
}
