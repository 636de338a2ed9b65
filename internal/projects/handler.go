package projects

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"civiclens/portal-backend/internal/trust"
	"civiclens/portal-backend/pkg/validate"
)

// Handler handles HTTP requests for project operations
type Handler struct {
	service ProjectService
	logger  *zap.Logger
}

// NewHandler creates a projects handler
func NewHandler(service ProjectService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers project routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.POST("", h.createProject)
		projects.GET("", h.listProjects)
		projects.GET("/:id", h.getProject)
		projects.DELETE("/:id", h.deleteProject)
		projects.PUT("/:id/progress", h.updateProgress)
		projects.GET("/:id/score", h.getScoreBreakdown)
		projects.GET("/:id/history", h.getProgressHistory)
	}
}

func (h *Handler) createProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.CreateProject(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

func (h *Handler) listProjects(c *gin.Context) {
	filter := ProjectFilter{
		Limit:  h.getIntParam(c, "limit", 50),
		Offset: h.getIntParam(c, "offset", 0),
	}
	if dept := c.Query("department"); dept != "" {
		filter.Department = &dept
	}
	if risk := c.Query("delay_risk"); risk != "" {
		r := trust.DelayRisk(risk)
		filter.DelayRisk = &r
	}
	if maxTrust := c.Query("max_trust"); maxTrust != "" {
		if v, err := strconv.Atoi(maxTrust); err == nil {
			filter.MaxTrust = &v
		}
	}

	result, err := h.service.ListProjects(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": result, "count": len(result)})
}

func (h *Handler) getProject(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	project, err := h.service.GetProject(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	c.JSON(http.StatusOK, project)
}

func (h *Handler) deleteProject(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteProject(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

func (h *Handler) updateProgress(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID := h.getUserID(c)
	project, err := h.service.UpdateProgress(c.Request.Context(), id, req, actorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

func (h *Handler) getScoreBreakdown(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	breakdown, err := h.service.ScoreBreakdown(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"breakdown": breakdown,
		"level":     trust.ClassifyLevel(breakdown.FinalScore),
	})
}

func (h *Handler) getProgressHistory(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	history, err := h.service.ProgressHistory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	if validate.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("Project request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) getUserID(c *gin.Context) uuid.UUID {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func (h *Handler) getIntParam(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
