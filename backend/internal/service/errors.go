package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	pkgerrors "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/errors"
)

// ── 业务错误 ──
// 均包装分类哨兵，调用方既可匹配具体错误，也可匹配分类

var (
	ErrApplicationNotFound = fmt.Errorf("%w: 申请不存在", pkgerrors.ErrNotFound)
	ErrProfileNotFound     = fmt.Errorf("%w: 用户不存在", pkgerrors.ErrNotFound)
	ErrCounselorNotFound   = fmt.Errorf("%w: 指定的顾问不存在", pkgerrors.ErrNotFound)

	ErrNotCounselor       = fmt.Errorf("%w: 指定的用户不是顾问", pkgerrors.ErrValidation)
	ErrUnknownRole        = fmt.Errorf("%w: 未知角色", pkgerrors.ErrValidation)
	ErrEmptyPatch         = fmt.Errorf("%w: 没有需要更新的字段", pkgerrors.ErrValidation)
	ErrSelfRoleChange     = fmt.Errorf("%w: 不能修改自己的角色", pkgerrors.ErrForbidden)
	ErrNotAssigned        = fmt.Errorf("%w: 该申请未分配给当前顾问", pkgerrors.ErrForbidden)
	ErrRoleNotPermitted   = fmt.Errorf("%w: 当前角色无权执行该操作", pkgerrors.ErrForbidden)
	ErrUnsupportedFile    = fmt.Errorf("%w: 仅支持 .csv 或 .xlsx 文件", pkgerrors.ErrValidation)
	ErrImportTooManyRows  = fmt.Errorf("%w: 导入行数超过上限", pkgerrors.ErrValidation)
	ErrImportMissingField = fmt.Errorf("%w: 表头缺少必需列", pkgerrors.ErrValidation)

	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrTokenRevoked       = errors.New("token 已失效")
	ErrEmailExists        = errors.New("邮箱已被注册")
)

// invalidStatus 构造带取值的状态错误
func invalidStatus(v string) error {
	return fmt.Errorf("%w: %q", pkgerrors.ErrInvalidStatus, v)
}

// mapRepoErr 记录不存在映射为指定业务错误，其余按后端错误原样上抛
func mapRepoErr(op string, err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return pkgerrors.Backend(op, err)
}

// ErrNotVisible 申请存在但不在当前操作者的可见范围内
var ErrNotVisible = fmt.Errorf("%w: 无权访问该申请", pkgerrors.ErrForbidden)
