package cli

import (
	"context"
	"fmt"
	"log"

	authRepo "taskflow-backend/internal/auth/repository"
	authUsecase "taskflow-backend/internal/auth/usecase"
	"taskflow-backend/internal/notification"
	"taskflow-backend/internal/task/remote"
	"taskflow-backend/internal/task/repository"
	"taskflow-backend/internal/task/scheduler"
	"taskflow-backend/internal/task/usecase"
	"taskflow-backend/pkg/config"
	"taskflow-backend/pkg/database"
	"taskflow-backend/pkg/fcm"
	"taskflow-backend/pkg/gtasks"
	"taskflow-backend/pkg/slack"

	"gorm.io/gorm"
)

// app holds the wired services shared by every command
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	services  *usecase.Services
	scheduler *scheduler.ReconcileScheduler
	devices   authRepo.DeviceTokenRepository
	tokens    authUsecase.TokenUsecase
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate task schema: %w", err)
	}
	if err := authRepo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate device schema: %w", err)
	}

	workRepo := repository.NewGormWorkRepository(db)
	taskRepo := repository.NewGormTaskRepository(db)
	devices := authRepo.NewDeviceTokenRepository(db)

	opts, err := gtasks.AuthOptions(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken, cfg.GoogleCredentials)
	if err != nil {
		return nil, err
	}
	client, err := gtasks.NewClient(ctx, cfg.GoogleTasklist, opts...)
	if err != nil {
		return nil, err
	}
	provider := remote.NewProvider(client, remote.Options{
		MaxAttempts: cfg.RemoteMaxAttempts,
		BaseDelay:   cfg.RemoteBaseDelay,
		Timeout:     cfg.RemoteTimeout,
	})

	notifier := newNotifier(ctx, cfg, devices)
	services := usecase.NewServices(workRepo, taskRepo, provider, notifier, usecase.ParseAdvisoryPolicy(cfg.SnoozeAdvisory))
	sched := scheduler.NewReconcileScheduler(workRepo, taskRepo, services.Engine, notifier, scheduler.Options{
		Interval: cfg.ReconcileInterval,
		Digest:   cfg.DailyDigest,
	})

	a := &app{
		cfg:       cfg,
		db:        db,
		services:  services,
		scheduler: sched,
		devices:   devices,
	}
	if cfg.APIJWTSecret != "" {
		a.tokens = authUsecase.NewTokenUsecase(cfg.APIJWTSecret)
	} else {
		log.Println("[Config] API_JWT_SECRET not set, API is open")
	}
	return a, nil
}

// newNotifier builds a dispatcher over every configured channel
func newNotifier(ctx context.Context, cfg *config.Config, devices authRepo.DeviceTokenRepository) notification.Notifier {
	var channels []notification.Channel

	if cfg.SlackWebhookURL != "" {
		channels = append(channels, notification.NewSlackChannel(slack.NewWebhook(cfg.SlackWebhookURL)))
	}

	if cfg.FirebaseCredentials != "" {
		client, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[Notify] FCM disabled: %v", err)
		} else {
			channels = append(channels, notification.NewPushChannel(client, cfg.FCMTopic, devices))
		}
	}

	if len(channels) == 0 {
		log.Println("[Notify] No notification channels configured")
		return notification.Nop{}
	}
	return notification.NewDispatcher(channels...)
}

func (a *app) Close() {
	a.scheduler.Stop()
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
