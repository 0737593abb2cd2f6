package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	specpkg "github.com/syncup/syncup/api"
	"github.com/syncup/syncup/internal/announcement"
	"github.com/syncup/syncup/internal/api"
	"github.com/syncup/syncup/internal/api/handler"
	"github.com/syncup/syncup/internal/assistant"
	"github.com/syncup/syncup/internal/auth"
	"github.com/syncup/syncup/internal/config"
	"github.com/syncup/syncup/internal/dashboard"
	"github.com/syncup/syncup/internal/database"
	"github.com/syncup/syncup/internal/export"
	"github.com/syncup/syncup/internal/leave"
	"github.com/syncup/syncup/internal/notification"
	"github.com/syncup/syncup/internal/project"
	"github.com/syncup/syncup/internal/report"
	"github.com/syncup/syncup/internal/scheduler"
	"github.com/syncup/syncup/internal/sprint"
	"github.com/syncup/syncup/internal/team"
)

const (
	shutdownTimeout = 15 * time.Second
	hubBuffer       = 16
)

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the notification listener and the scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !skipMigrations {
				if err := database.NewMigrator(cfg.DatabaseURL).Up(ctx); err != nil {
					return err
				}
			}
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.DatabaseURL, database.Options{})
	if err != nil {
		return err
	}
	defer db.Close()
	pool := db.Pool()

	userRepo := auth.NewRepository(pool)
	teamRepo := team.NewRepository(pool)
	projectRepo := project.NewRepository(pool)
	sprintRepo := sprint.NewRepository(pool)
	reportRepo := report.NewRepository(pool)
	leaveRepo := leave.NewRepository(pool)
	announcementRepo := announcement.NewRepository(pool)
	notificationRepo := notification.NewRepository(pool)

	hub := notification.NewHub(hubBuffer)
	notifier := notification.NewNotifier(notificationRepo)

	authService := auth.NewService(userRepo, cfg.JWTSecret, cfg.JWTExpiration, cfg.BcryptCost)
	projectService := project.NewService(projectRepo)
	sprintService := sprint.NewService(sprintRepo, notifier)
	reportService := report.NewService(reportRepo)
	leaveService := leave.NewService(leaveRepo, notifier)
	announcementService := announcement.NewService(announcementRepo, notifier)
	assistantService := assistant.NewService(
		newModel(ctx, cfg),
		assistant.NewChatRepository(pool),
		assistant.NewExecutor(pool, cfg.AIMaxRows, cfg.AIQueryTimeout).WithRole(cfg.AIQueryRole),
		assistant.NewResolver(assistant.NewPostgresNames(pool)),
	)
	dashboardService := dashboard.NewService(dashboard.Sources{
		Reports:       reportRepo,
		Notifications: notificationRepo,
		Announcements: announcementService,
		Projects:      projectService,
		Sprints:       sprintRepo,
		Leave:         leaveService,
	})

	router := api.NewRouter(api.RouterDeps{
		DBPinger:      db,
		Version:       cfg.Version,
		OpenAPISpec:   specpkg.OpenAPISpec,
		Authenticator: authService,

		Auth:          handler.NewAuthHandler(authService, userRepo),
		Users:         handler.NewUserHandler(authService, userRepo),
		Teams:         handler.NewTeamHandler(teamRepo),
		Projects:      handler.NewProjectHandler(projectService),
		Sprints:       handler.NewSprintHandler(sprintService, projectService),
		Tasks:         handler.NewTaskHandler(sprintService, projectService),
		Reports:       handler.NewReportHandler(reportService),
		Leave:         handler.NewLeaveHandler(leaveService),
		Announcements: handler.NewAnnouncementHandler(announcementService),
		Notifications: handler.NewNotificationHandler(notificationRepo, hub),
		Assistant:     handler.NewAssistantHandler(assistantService),
		Dashboard:     handler.NewDashboardHandler(dashboardService),
		Export:        handler.NewExportHandler(export.New(reportRepo, leaveRepo)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	jobs := scheduler.New(reportRepo, notificationRepo, notifier, sprintService, scheduler.Options{
		Interval:     cfg.SchedulerInterval,
		ReminderHour: cfg.StandupReminderHour,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		notification.NewListener(pool, hub).Run(gctx)
		return nil
	})

	g.Go(func() error {
		jobs.Start(gctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("starting SyncUp server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

// newModel returns the configured language model, or nil to leave the
// assistant unavailable.
func newModel(ctx context.Context, cfg *config.Config) assistant.Model {
	m, err := assistant.NewGeminiModel(ctx, cfg.AIAPIKey, cfg.AIModel)
	if err != nil {
		if errors.Is(err, assistant.ErrUnavailable) {
			slog.Info("assistant disabled: AI_API_KEY is not set")
		} else {
			slog.Warn("assistant disabled", "error", err)
		}
		return nil
	}
	return m
}
