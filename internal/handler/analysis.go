package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adjudge/internal/service"
	"adjudge/internal/sheet"
)

type AnalysisHandler struct {
	Service *service.AnalysisService
	Logger  *zap.Logger
}

func (h *AnalysisHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/analysis")
	g.GET("/comparison", h.comparison)
	g.GET("/full", h.full)
	g.GET("/monthly-profit", h.monthlyProfit)
	g.GET("/daily-trend", h.dailyTrend)
	g.GET("/project-monthly", h.projectMonthly)
	g.POST("/refresh", h.refresh)
}

// team is a query parameter; absent means the caller is an administrator and
// sees every team's campaigns.
func teamQuery(c *gin.Context) string {
	return strings.TrimSpace(c.Query("team"))
}

func (h *AnalysisHandler) comparison(c *gin.Context) {
	pairs, err := h.Service.GetComparisonData(c.Request.Context(), teamQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, pairs, map[string]any{"count": len(pairs)})
}

func (h *AnalysisHandler) full(c *gin.Context) {
	data, err := h.Service.GetFullAnalysisData(c.Request.Context(), teamQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, data, nil)
}

func (h *AnalysisHandler) monthlyProfit(c *gin.Context) {
	data, err := h.Service.GetMonthlyProfit(c.Request.Context(), teamQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, data, nil)
}

func (h *AnalysisHandler) dailyTrend(c *gin.Context) {
	data, err := h.Service.GetDailyTrendData(c.Request.Context(), teamQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, data, map[string]any{"days": len(data)})
}

func (h *AnalysisHandler) projectMonthly(c *gin.Context) {
	data, err := h.Service.GetProjectMonthlyData(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, data, nil)
}

func (h *AnalysisHandler) refresh(c *gin.Context) {
	if err := h.Service.Refresh(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, gin.H{"refreshed": true}, nil)
}

// fail maps pipeline errors onto HTTP statuses. End users keep seeing stale
// cached data while refreshes fail; these statuses only reach diagnostics.
func (h *AnalysisHandler) fail(c *gin.Context, err error) {
	if h.Logger != nil {
		h.Logger.Warn("analysis request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	switch {
	case errors.Is(err, sheet.ErrRangeNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, sheet.ErrSourceUnavailable):
		Error(c, http.StatusBadGateway, err.Error(), nil)
	case errors.Is(err, service.ErrConfigMissing):
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
}
