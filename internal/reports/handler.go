package reports

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"civiclens/portal-backend/internal/oracle"
	"civiclens/portal-backend/pkg/geospatial"
	"civiclens/portal-backend/pkg/validate"
)

// Handler handles HTTP requests for citizen report operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a reports handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers report routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports")
	{
		reports.POST("", h.submitReport)
		reports.GET("", h.listReports)
		reports.GET("/:id", h.getReport)
		reports.PUT("/:id/status", h.moderateReport)
		reports.GET("/:id/transitions", h.getAllowedTransitions)
	}
}

func (h *Handler) submitReport(c *gin.Context) {
	var req SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.SubmitReport(c.Request.Context(), h.getUserID(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

func (h *Handler) listReports(c *gin.Context) {
	filter := &ReportFilter{
		Limit:  h.getIntParam(c, "limit", 50),
		Offset: h.getIntParam(c, "offset", 0),
	}
	if projectID := c.Query("project_id"); projectID != "" {
		id, err := uuid.Parse(projectID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
			return
		}
		filter.ProjectID = &id
	}
	if userID := c.Query("user_id"); userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		filter.UserID = &id
	}
	if status := c.Query("status"); status != "" {
		s := Status(status)
		if !ValidStatus(s) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		filter.Status = &s
	}
	if severity := c.Query("severity"); severity != "" {
		s := Severity(severity)
		if !ValidSeverity(s) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown severity"})
			return
		}
		filter.Severity = &s
	}

	// Map view: lat+lng+radius_m narrows the listing to a circle
	if c.Query("radius_m") != "" {
		center, radius, ok := h.parseRadiusQuery(c)
		if !ok {
			return
		}
		result, err := h.service.ListReportsNear(c.Request.Context(), filter, center, radius)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reports": result, "total": len(result)})
		return
	}

	result, total, err := h.service.ListReports(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": result, "total": total})
}

func (h *Handler) parseRadiusQuery(c *gin.Context) (geospatial.Coordinate, float64, bool) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	radius, radErr := strconv.ParseFloat(c.Query("radius_m"), 64)
	if latErr != nil || lngErr != nil || radErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat, lng and radius_m must be numeric"})
		return geospatial.Coordinate{}, 0, false
	}
	return geospatial.Coordinate{Lat: lat, Lng: lng}, radius, true
}

func (h *Handler) getReport(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	report, err := h.service.GetReport(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) moderateReport(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req struct {
		Status Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.Moderate(c.Request.Context(), id, h.getUserID(c), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) getAllowedTransitions(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	transitions, err := h.service.AllowedModeratorTransitions(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allowed": transitions})
}

// respondError maps service errors to HTTP statuses. Gate refusals carry
// the oracle failure kind, so a rate-limited or quota-exhausted oracle is
// surfaced as such instead of a generic 422.
func (h *Handler) respondError(c *gin.Context, err error) {
	var ge *GateError
	switch {
	case errors.As(err, &ge):
		status := http.StatusUnprocessableEntity
		if errors.Is(err, oracle.ErrRateLimited) {
			status = http.StatusTooManyRequests
		} else if errors.Is(err, oracle.ErrQuotaExhausted) {
			status = http.StatusPaymentRequired
		}
		c.JSON(status, gin.H{"error": "face verification failed", "reason": ge.Reason})
	case validate.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case strings.Contains(err.Error(), "not found"):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case strings.Contains(err.Error(), "not permitted"):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Report request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report ID"})
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
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
