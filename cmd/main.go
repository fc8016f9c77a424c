package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kyz7/requestdesk/internal/auth"
	"github.com/Kyz7/requestdesk/internal/config"
	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/events"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/notification"
	"github.com/Kyz7/requestdesk/internal/server"
	"github.com/Kyz7/requestdesk/internal/storage"
	"github.com/Kyz7/requestdesk/internal/user"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/Kyz7/requestdesk/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Component("main").WithError(err).Fatal("Invalid configuration")
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)
	log := logging.Component("main")

	if err := utils.ValidateJWTSecret(); err != nil {
		log.WithError(err).Fatal("JWT configuration error")
	}

	// ========== DATABASE ==========
	db, err := database.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("Database connection failed")
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("Migration failed")
	}
	if err := database.RunMigrations(db, "migrations"); err != nil {
		log.WithError(err).Warn("SQL migrations failed; indexes may be missing")
	}

	if err := user.EnsureAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("Failed to seed admin user")
	}

	// ========== STORAGE, AUTH ==========
	if err := storage.Init(cfg); err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	log.WithField("mode", storage.Mode()).Info("Storage initialized")

	auth.Configure(cfg)

	// ========== EVENTS ==========
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := notification.NewNotifier(db)
	defer notifier.Subscribe(events.Default)()

	dispatcher := webhook.NewDispatcher(db, webhook.OptionsFromConfig(cfg))
	defer dispatcher.Subscribe(events.Default)()
	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Webhook dispatcher stopped")
		}
	}()

	// ========== HTTP ==========
	app := server.New(db)

	go func() {
		log.WithField("addr", cfg.ServerAddr).Info("Server starting")
		if err := app.Listen(cfg.ServerAddr); err != nil {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}
