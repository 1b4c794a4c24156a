package handler

import (
	"net/http"

	domain "fieldserve/internal/core"

	pbCore "github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"
)

type AdminHandler struct {
	analytics domain.AnalyticsService
}

func NewAdminHandler(analytics domain.AnalyticsService) *AdminHandler {
	return &AdminHandler{analytics: analytics}
}

// DashboardStats handles GET /api/admin/stats
func (h *AdminHandler) DashboardStats(e *pbCore.RequestEvent) error {
	stats, err := h.analytics.GetDashboardStats()
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, stats)
}

// TopTechnicians handles GET /api/admin/technicians/top?limit=N
func (h *AdminHandler) TopTechnicians(e *pbCore.RequestEvent) error {
	limit := cast.ToInt(e.Request.URL.Query().Get("limit"))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rankings, err := h.analytics.GetTopTechnicians(limit)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, rankings)
}
