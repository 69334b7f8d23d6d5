package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/service"
	pkgerrors "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/errors"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/jwt"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/response"
)

// 业务错误码
const (
	codeParam         = 10001
	codeUnauthorized  = 10002
	codeForbidden     = 10003
	codeNotFound      = 10006
	codeBadCredential = 11001
	codeEmailExists   = 12001
	codeInvalidStatus = 13001
)

// handleError 将 Service 层错误按分类映射为 HTTP 响应
// 分类之外的错误统一视为内部错误，原始错误挂到 c.Errors 供日志中间件输出
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, codeBadCredential, "邮箱或密码错误")
	case errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenInvalid):
		response.Unauthorized(c, codeUnauthorized, "Token 无效或已过期")
	case errors.Is(err, service.ErrEmailExists):
		response.Error(c, http.StatusConflict, codeEmailExists, err.Error())
	case errors.Is(err, pkgerrors.ErrInvalidStatus):
		response.BadRequest(c, codeInvalidStatus, err.Error())
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, codeParam, err.Error())
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, codeForbidden, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, codeNotFound, err.Error())
	case pkgerrors.IsBackend(err):
		_ = c.Error(err)
		response.BackendFailure(c, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
