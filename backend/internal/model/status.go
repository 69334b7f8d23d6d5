package model

import "strings"

// ApplicationStatus 申请状态
// 五个状态之间可任意跳转，不强制单向推进，也没有终态锁定
type ApplicationStatus string

const (
	StatusStarted            ApplicationStatus = "started"
	StatusProcessing         ApplicationStatus = "processing"
	StatusDocumentsSubmitted ApplicationStatus = "documents_submitted"
	StatusPaymentsProcessed  ApplicationStatus = "payments_processed"
	StatusCompleted          ApplicationStatus = "completed"
)

// InitialStatus 新建申请的默认状态
const InitialStatus = StatusStarted

// AllStatuses 按常规推进顺序排列的全部状态
var AllStatuses = []ApplicationStatus{
	StatusStarted,
	StatusProcessing,
	StatusDocumentsSubmitted,
	StatusPaymentsProcessed,
	StatusCompleted,
}

// Valid 是否为合法状态
func (s ApplicationStatus) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// ParseStatus 解析状态字符串；大小写与首尾空白必须精确匹配线上取值
func ParseStatus(v string) (ApplicationStatus, bool) {
	s := ApplicationStatus(v)
	return s, s.Valid()
}

// ── 角色 ──

// Role 用户角色
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCounselor Role = "counselor"
	RoleAgent     Role = "agent"
)

// Valid 是否为合法角色
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCounselor, RoleAgent:
		return true
	}
	return false
}

// ── 学历类别 ──

// EducationLevel 已完成的学历类别
type EducationLevel string

const (
	EducationScience    EducationLevel = "science"
	EducationCommerce   EducationLevel = "commerce"
	EducationArts       EducationLevel = "arts"
	EducationVocational EducationLevel = "vocational"
	EducationOther      EducationLevel = "other"
)

// ParseEducationLevel 解析学历类别（忽略大小写）；空值视为 other
func ParseEducationLevel(v string) (EducationLevel, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return EducationOther, true
	}
	switch lvl := EducationLevel(v); lvl {
	case EducationScience, EducationCommerce, EducationArts, EducationVocational, EducationOther:
		return lvl, true
	}
	return "", false
}
