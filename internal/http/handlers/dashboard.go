package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type DashboardHandler struct {
	dashboard services.DashboardService
}

func NewDashboardHandler(dashboard services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// GET /api/dashboard
func (h *DashboardHandler) Summary(c *gin.Context) {
	sum, err := h.dashboard.Summary(dbcOf(c))
	if err != nil {
		response.RespondServiceError(c, "dashboard_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"summary": sum})
}
