package dto

// ── 申请模块 DTO ──

// CreateApplicationRequest 新建申请
// 必填项由 Service 校验，以便返回统一的校验错误
type CreateApplicationRequest struct {
	ClientName         string   `json:"client_name"`
	ClientEmail        *string  `json:"client_email"        binding:"omitempty,email"`
	PhoneNumber        string   `json:"phone_number"`
	CompletedCourse    string   `json:"completed_course"    binding:"omitempty,edu_level"`
	PlannedCourses     []string `json:"planned_courses"`
	PreferredLocations []string `json:"preferred_locations"`
	PreferredColleges  []string `json:"preferred_colleges"`
	CounselorID        *string  `json:"counselor_id"`
}

// UpdateApplicationRequest 部分更新申请；未出现的字段保持原值
// counselor_id 传 "none" 表示取消分配
type UpdateApplicationRequest struct {
	ClientName         *string   `json:"client_name"`
	ClientEmail        *string   `json:"client_email"`
	PhoneNumber        *string   `json:"phone_number"`
	CompletedCourse    *string   `json:"completed_course"    binding:"omitempty,edu_level"`
	PlannedCourses     *[]string `json:"planned_courses"`
	PreferredLocations *[]string `json:"preferred_locations"`
	PreferredColleges  *[]string `json:"preferred_colleges"`
	CounselorID        *string   `json:"counselor_id"`
	ApplicationStatus  *string   `json:"application_status"`
}

// SetStatusRequest 修改申请状态
type SetStatusRequest struct {
	Status string `json:"status"`
}

// AppendNoteRequest 追加备注
type AppendNoteRequest struct {
	NoteText string `json:"note_text" binding:"required,max=5000"`
}

// ApplicationListRequest 申请列表查询参数
type ApplicationListRequest struct {
	PaginationRequest
	Status  string `form:"status"  binding:"omitempty,app_status"`
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
}

// ApplicationResponse 申请详情
type ApplicationResponse struct {
	ApplicationID      string         `json:"application_id"`
	ClientName         string         `json:"client_name"`
	ClientEmail        *string        `json:"client_email"`
	PhoneNumber        string         `json:"phone_number"`
	CompletedCourse    string         `json:"completed_course"`
	PlannedCourses     []string       `json:"planned_courses"`
	PreferredLocations []string       `json:"preferred_locations"`
	PreferredColleges  []string       `json:"preferred_colleges"`
	CounselorID        *string        `json:"counselor_id"`
	CounselorName      *string        `json:"counselor_name,omitempty"`
	AgentID            *string        `json:"agent_id"`
	ApplicationStatus  string         `json:"application_status"`
	Notes              []NoteResponse `json:"notes"`
	CreatedAt          string         `json:"created_at"`
	UpdatedAt          string         `json:"updated_at"`
}

// NoteResponse 备注
type NoteResponse struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	CreatedAt  string  `json:"created_at"`
	AuthorID   *string `json:"author_id"`
	AuthorName string  `json:"author_name"`
}

// ImportApplicationResponse 批量导入结果
type ImportApplicationResponse struct {
	Total   int              `json:"total"`
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError 导入错误详情（行号从 1 开始，不含表头）
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
