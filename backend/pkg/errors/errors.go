package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ── 错误分类 ──
// 业务模块的错误应包装以下哨兵之一，便于 Handler 统一映射 HTTP 状态码

var (
	// ErrValidation 必填字段缺失或格式错误
	ErrValidation = errors.New("参数校验失败")
	// ErrForbidden 当前角色无权执行该操作
	ErrForbidden = errors.New("无权操作")
	// ErrInvalidStatus 状态值不在允许的枚举内
	ErrInvalidStatus = errors.New("无效的申请状态")
	// ErrNotFound 引用的记录不存在
	ErrNotFound = errors.New("记录不存在")
)

// Validation 构造带字段说明的校验错误
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// BackendError 持久层 / 身份服务返回的原始错误，原样向上传递
type BackendError struct {
	Op   string // 出错的操作，例如 "application.list"
	Code string // PostgreSQL SQLSTATE（可能为空）
	Err  error
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %v (SQLSTATE %s)", e.Op, e.Err, e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Backend 包装后端错误；nil 原样返回，已是分类错误的不重复包装
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClassified(err) {
		return err
	}
	be := &BackendError{Op: op, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		be.Code = pgErr.Code
	}
	return be
}

// IsBackend 判断是否为后端错误
func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IsClassified 判断错误是否已归入分类体系
func IsClassified(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrNotFound) ||
		IsBackend(err)
}
