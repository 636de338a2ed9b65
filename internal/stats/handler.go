package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Exporter renders the transparency export in one format. The stats handler
// selects one by the format query parameter.
type Exporter func(c *gin.Context, summary *Summary) error

// Handler handles HTTP requests for dashboard aggregates
type Handler struct {
	aggregator *Aggregator
	exporters  map[string]Exporter
	logger     *zap.Logger
}

// NewHandler creates a stats handler
func NewHandler(aggregator *Aggregator, exporters map[string]Exporter, logger *zap.Logger) *Handler {
	return &Handler{aggregator: aggregator, exporters: exporters, logger: logger}
}

// RegisterRoutes registers stats routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	stats := router.Group("/stats")
	{
		stats.GET("/summary", h.getSummary)
		stats.GET("/discrepancies", h.getDiscrepancies)
		stats.GET("/departments", h.getDepartments)
		stats.GET("/export", h.export)
		stats.POST("/refresh", h.refresh)
	}
}

func (h *Handler) getSummary(c *gin.Context) {
	summary, err := h.aggregator.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute dashboard summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) getDiscrepancies(c *gin.Context) {
	summary, err := h.aggregator.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute dashboard summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":    summary.DiscrepancyAlerts,
		"surfaced":  summary.SurfacedMismatches,
		"low_trust": summary.LowTrustProjects,
	})
}

func (h *Handler) getDepartments(c *gin.Context) {
	summary, err := h.aggregator.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute dashboard summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"departments":  summary.DepartmentRollups,
		"distribution": summary.Distribution,
	})
}

// export streams the transparency report in the requested format
func (h *Handler) export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	exporter, ok := h.exporters[format]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format " + format})
		return
	}

	summary, err := h.aggregator.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute dashboard summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := exporter(c, summary); err != nil {
		h.logger.Error("Transparency export failed", zap.Error(err), zap.String("format", format))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// refresh forces a recomputation, for admins who just updated progress
func (h *Handler) refresh(c *gin.Context) {
	h.aggregator.Invalidate()
	summary, err := h.aggregator.Recompute(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to recompute dashboard summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
