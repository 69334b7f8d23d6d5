package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/dto"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/service"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/response"
)

// ProfileHandler 用户档案 HTTP 处理器
type ProfileHandler struct {
	profileSvc service.ProfileService
}

// NewProfileHandler 创建 ProfileHandler
func NewProfileHandler(profileSvc service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// ListProfiles 用户列表
// GET /api/v1/profiles?role=counselor&page=1&page_size=20
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ProfileListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	list, total, err := h.profileSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// CreateProfile 创建账号
// POST /api/v1/profiles
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	profile, err := h.profileSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, profile)
}

// AssignRole 修改角色
// PUT /api/v1/profiles/:id/role
func (h *ProfileHandler) AssignRole(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.profileSvc.AssignRole(c.Request.Context(), actor, c.Param("id"), &req); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListCounselors 顾问下拉选项
// GET /api/v1/profiles/counselors
func (h *ProfileHandler) ListCounselors(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	options, err := h.profileSvc.CounselorOptions(c.Request.Context(), actor)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, options)
}
