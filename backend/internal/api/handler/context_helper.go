package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/api/middleware"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/jwt"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.ContextUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 从 Gin 上下文中提取当前操作者（user_id + role）
func MustGetActor(c *gin.Context) (model.Actor, bool) {
	id := c.GetString(middleware.ContextUserID)
	role := model.Role(c.GetString(middleware.ContextRole))
	if id == "" || !role.Valid() {
		response.Unauthorized(c, 10002, "未认证")
		return model.Actor{}, false
	}
	return model.Actor{ID: id, Role: role}, true
}

// MustGetClaims 提取 JWT 中间件注入的完整声明，登出时用于吊销 Token
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.ContextClaims)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}
