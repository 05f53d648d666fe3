package http

import (
	"net/http"
	"strconv"

	"tradesignal/internal/monitor/service"
	"tradesignal/pkg/logger"

	"github.com/labstack/echo/v4"
)

const defaultListLimit = 50

// AuditHandler serves read-only access to the monitoring history.
type AuditHandler struct {
	auditService service.AuditService
	logger       *logger.Logger
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService service.AuditService, logger *logger.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, logger: logger}
}

// RegisterRoutes registers the audit routes to the Echo group.
func (h *AuditHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/samples", h.GetRecentSamples)
	g.GET("/decisions", h.GetRecentDecisions)
	g.GET("/alerts", h.GetRecentAlerts)
	g.GET("/feedback/stats", h.GetFeedbackStats)
}

// GetRecentSamples returns the most recent price samples, optionally
// filtered by asset.
func (h *AuditHandler) GetRecentSamples(c echo.Context) error {
	samples, err := h.auditService.RecentSamples(c.Request().Context(), c.QueryParam("asset"), limitParam(c))
	if err != nil {
		h.logger.Error("Failed to list price samples", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list price samples"})
	}
	return c.JSON(http.StatusOK, samples)
}

// GetRecentDecisions returns the most recent decisions.
func (h *AuditHandler) GetRecentDecisions(c echo.Context) error {
	decisions, err := h.auditService.RecentDecisions(c.Request().Context(), limitParam(c))
	if err != nil {
		h.logger.Error("Failed to list decisions", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list decisions"})
	}
	return c.JSON(http.StatusOK, decisions)
}

// GetRecentAlerts returns the most recent alerts including feedback.
func (h *AuditHandler) GetRecentAlerts(c echo.Context) error {
	alerts, err := h.auditService.RecentAlerts(c.Request().Context(), limitParam(c))
	if err != nil {
		h.logger.Error("Failed to list alerts", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list alerts"})
	}
	return c.JSON(http.StatusOK, alerts)
}

// GetFeedbackStats returns aggregate feedback counts.
func (h *AuditHandler) GetFeedbackStats(c echo.Context) error {
	stats, err := h.auditService.FeedbackStats(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to compute feedback stats", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to compute feedback stats"})
	}
	return c.JSON(http.StatusOK, stats)
}

func limitParam(c echo.Context) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}
