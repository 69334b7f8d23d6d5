package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/api/middleware"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/response"
)

// 自定义校验标签
const (
	appStatusTag = "app_status"
	appRoleTag   = "app_role"
	eduLevelTag  = "edu_level"
)

var registerOnce sync.Once

// RegisterValidators 向 Gin 默认校验器注册业务枚举校验，重复调用无副作用
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin 校验引擎不是 validator/v10")
			return
		}

		// 错误信息使用 json / form 标签名而非 Go 字段名
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		if err = v.RegisterValidation(appStatusTag, func(fl validator.FieldLevel) bool {
			_, ok := model.ParseStatus(fl.Field().String())
			return ok
		}); err != nil {
			return
		}
		if err = v.RegisterValidation(appRoleTag, func(fl validator.FieldLevel) bool {
			return model.Role(fl.Field().String()).Valid()
		}); err != nil {
			return
		}
		err = v.RegisterValidation(eduLevelTag, func(fl validator.FieldLevel) bool {
			_, ok := model.ParseEducationLevel(fl.Field().String())
			return ok
		})
	})
	return err
}

// bindError 请求绑定失败时返回 400，details 列出未通过校验的字段
func bindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.ErrorWithDetails(c, http.StatusBadRequest, codeParam, "参数校验失败", "请求格式错误")
		return
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, codeParam, "参数校验失败", strings.Join(parts, "; "))
}
