package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/service"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/response"
)

// DashboardHandler 仪表盘 HTTP 处理器
type DashboardHandler struct {
	dashboardSvc service.DashboardService
}

// NewDashboardHandler 创建 DashboardHandler
func NewDashboardHandler(dashboardSvc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc}
}

// GetStats 当前操作者可见范围内的统计
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	stats, err := h.dashboardSvc.Stats(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, stats)
}

// GetCounselorStats 按顾问分组的状态统计
// GET /api/v1/dashboard/counselors
func (h *DashboardHandler) GetCounselorStats(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	stats, err := h.dashboardSvc.CounselorStats(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, stats)
}
