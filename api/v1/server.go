// Package v1 wires the portal's modules into the versioned HTTP API.
package v1

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"civiclens/portal-backend/internal/auth"
	"civiclens/portal-backend/internal/config"
	"civiclens/portal-backend/internal/notifications"
	"civiclens/portal-backend/internal/notifications/websocket"
	"civiclens/portal-backend/internal/oracle"
	"civiclens/portal-backend/internal/projects"
	"civiclens/portal-backend/internal/reports"
	"civiclens/portal-backend/internal/stats"
	"civiclens/portal-backend/internal/stats/export"
)

// API holds every wired module of the portal backend
type API struct {
	Auth       *auth.Handler
	Projects   *projects.Handler
	Reports    *reports.Handler
	Stats      *stats.Handler
	Aggregator *stats.Aggregator
	WebSockets *websocket.Manager

	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// Dependencies are the external clients the API is built on
type Dependencies struct {
	SQLDB  *sqlx.DB
	GormDB *gorm.DB
	Email  notifications.EmailSender
	Images reports.ImageStore
}

// Setup wires repositories, services and handlers together
func Setup(cfg *config.Config, deps Dependencies, logger *zap.Logger) (*API, error) {
	// Oracles
	oracleClient := oracle.NewClient(oracle.Config{
		BaseURL: cfg.Oracle.GatewayURL,
		APIKey:  cfg.Oracle.APIKey,
		Model:   cfg.Oracle.Model,
		Timeout: cfg.Oracle.Timeout,
	}, logger)

	// Auth
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, "civiclens", cfg.Auth.TokenTTL)
	authService := auth.NewService(auth.NewGormUserRepository(deps.GormDB), tokens, logger)
	authHandler := auth.NewHandler(authService, logger)

	// Projects
	projectRepo := projects.NewProjectRepository(deps.GormDB)
	historyRepo := projects.NewHistoryRepository(deps.GormDB)
	projectService := projects.NewProjectService(projectRepo, historyRepo, logger)
	projectHandler := projects.NewHandler(projectService, logger)

	// Notifications
	wsManager := websocket.NewManager(logger)
	notifier := notifications.NewService(wsManager, deps.Email, cfg.Notifications.AdminRecipients, logger)

	// Reports
	reportRepo := reports.NewPostgresRepository(deps.SQLDB)
	reportService := reports.NewService(
		reportRepo,
		&projectDirectory{service: projectService},
		oracleClient,
		oracleClient,
		deps.Images,
		notifier,
		logger,
	)
	reportHandler := reports.NewHandler(reportService, logger)

	// Stats
	aggregator := stats.NewAggregator(
		&projectSnapshot{service: projectService},
		reportRepo,
		notifier,
		cfg.Stats.CacheTTL,
		logger,
	)
	statsHandler := stats.NewHandler(aggregator, buildExporters(projectService, aggregator), logger)

	return &API{
		Auth:       authHandler,
		Projects:   projectHandler,
		Reports:    reportHandler,
		Stats:      statsHandler,
		Aggregator: aggregator,
		WebSockets: wsManager,
		tokens:     tokens,
		logger:     logger,
	}, nil
}

// Register mounts all routes on the engine
func (a *API) Register(router *gin.Engine) {
	api := router.Group("/api/v1")

	// public
	a.Auth.RegisterRoutes(api)
	api.GET("/ws", a.handleWebSocket)

	// authenticated
	authed := api.Group("", auth.Middleware(a.tokens))
	a.Auth.RegisterProtectedRoutes(authed)
	a.Reports.RegisterRoutes(authed)
	a.Stats.RegisterRoutes(authed)

	// projects: reads for everyone signed in, mutations for moderators up
	a.Projects.RegisterRoutes(authed.Group("", mutationsRequire(auth.RoleModerator)))
}

// mutationsRequire gates non-GET methods behind a role
func mutationsRequire(role auth.Role) gin.HandlerFunc {
	check := auth.RequireRole(role)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		check(c)
	}
}

func (a *API) handleWebSocket(c *gin.Context) {
	userID := c.Query("user_id")
	if _, err := a.WebSockets.HandleConnection(c.Writer, c.Request, userID); err != nil {
		a.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "websocket upgrade failed"})
	}
}

// Close shuts down background resources
func (a *API) Close() {
	a.Aggregator.Stop()
	a.WebSockets.Close()
}

// projectDirectory adapts the projects service to the narrow view the
// reports module consumes.
type projectDirectory struct {
	service projects.ProjectService
}

func (d *projectDirectory) ProjectName(ctx context.Context, id uuid.UUID) (string, error) {
	project, err := d.service.GetProject(ctx, id)
	if err != nil {
		return "", err
	}
	return project.Name, nil
}

func (d *projectDirectory) RecordReport(ctx context.Context, projectID uuid.UUID) error {
	_, err := d.service.RecordCitizenReport(ctx, projectID)
	return err
}

// projectSnapshot adapts the projects service to the stats aggregator
type projectSnapshot struct {
	service projects.ProjectService
}

func (s *projectSnapshot) AllProjects(ctx context.Context) ([]*projects.Project, error) {
	return s.service.ListProjects(ctx, projects.ProjectFilter{})
}

func buildExporters(projectService projects.ProjectService, aggregator *stats.Aggregator) map[string]stats.Exporter {
	snapshotRows := func(ctx context.Context) ([]export.TrustRow, error) {
		snapshot, err := projectService.ListProjects(ctx, projects.ProjectFilter{})
		if err != nil {
			return nil, err
		}
		return export.BuildTrustRows(snapshot), nil
	}

	attachment := func(c *gin.Context, ext, contentType string) {
		name := fmt.Sprintf("trust-report-%s.%s", time.Now().Format("2006-01-02"), ext)
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Header("Content-Type", contentType)
	}

	return map[string]stats.Exporter{
		"csv": func(c *gin.Context, summary *stats.Summary) error {
			rows, err := snapshotRows(c.Request.Context())
			if err != nil {
				return err
			}
			attachment(c, "csv", "text/csv")
			return export.NewCSVExporter(export.DefaultCSVOptions()).WriteProjects(c.Writer, rows)
		},
		"xlsx": func(c *gin.Context, summary *stats.Summary) error {
			rows, err := snapshotRows(c.Request.Context())
			if err != nil {
				return err
			}
			attachment(c, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			return export.NewExcelExporter(export.DefaultExcelOptions()).Write(c.Writer, rows, summary.DepartmentRollups)
		},
		"pdf": func(c *gin.Context, summary *stats.Summary) error {
			rows, err := snapshotRows(c.Request.Context())
			if err != nil {
				return err
			}
			attachment(c, "pdf", "application/pdf")
			return export.NewPDFGenerator(export.DefaultPDFOptions()).Write(c.Writer, summary, rows)
		},
	}
}
