package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"civiclens/portal-backend/internal/config"
	"civiclens/portal-backend/internal/notifications"
	"civiclens/portal-backend/internal/projects"
	"civiclens/portal-backend/internal/reports"
	"civiclens/portal-backend/internal/stats"
)

// The aggregation worker keeps the dashboard cache warm and raises
// discrepancy alerts without waiting for an API request to trigger a
// recompute. It shares the database with the API server but runs as a
// separate process so long recomputations never block request handling.
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	projectRepo := projects.NewProjectRepository(gormDB)
	historyRepo := projects.NewHistoryRepository(gormDB)
	projectService := projects.NewProjectService(projectRepo, historyRepo, logger)
	reportRepo := reports.NewPostgresRepository(db)

	ctx := context.Background()

	email, err := buildEmailSender(ctx, cfg)
	if err != nil {
		logger.Warn("Email channel disabled", zap.Error(err))
	}
	notifier := notifications.NewService(nil, email, cfg.Notifications.AdminRecipients, logger)

	aggregator := stats.NewAggregator(
		&projectSnapshot{service: projectService},
		reportRepo,
		notifier,
		cfg.Stats.CacheTTL,
		logger,
	)
	defer aggregator.Stop()

	refresh := func() {
		runCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		started := time.Now()
		summary, err := aggregator.Recompute(runCtx)
		if err != nil {
			logger.Error("Aggregation run failed", zap.Error(err))
			return
		}
		logger.Info("Aggregation run complete",
			zap.Int("projects", summary.TotalProjects),
			zap.Int("alerts", len(summary.DiscrepancyAlerts)),
			zap.Duration("elapsed", time.Since(started)))
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Stats.RefreshSchedule, refresh); err != nil {
		logger.Fatal("Invalid refresh schedule",
			zap.String("schedule", cfg.Stats.RefreshSchedule), zap.Error(err))
	}

	// Prime the cache before the first tick.
	refresh()
	scheduler.Start()
	logger.Info("Aggregation worker started",
		zap.String("schedule", cfg.Stats.RefreshSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	<-scheduler.Stop().Done()
	logger.Info("Worker exiting")
}

// projectSnapshot adapts the project service to the aggregator's source
// interface.
type projectSnapshot struct {
	service projects.ProjectService
}

func (p *projectSnapshot) AllProjects(ctx context.Context) ([]*projects.Project, error) {
	return p.service.ListProjects(ctx, projects.ProjectFilter{})
}

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func buildEmailSender(ctx context.Context, cfg *config.Config) (notifications.EmailSender, error) {
	if cfg.Notifications.EmailFromAddress == "" {
		return nil, fmt.Errorf("no sender address configured")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Notifications.SESRegion))
	if err != nil {
		return nil, err
	}
	return notifications.NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.Notifications.EmailFromAddress), nil
}
