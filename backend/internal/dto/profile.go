package dto

// ── 用户档案模块 DTO ──

// CreateProfileRequest 管理员创建账号（顾问 / 代理 / 管理员）
type CreateProfileRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role"     binding:"required,app_role"`
	Username string `json:"username" binding:"omitempty,max=100"`
}

// ProfileListRequest 用户列表查询参数
type ProfileListRequest struct {
	PaginationRequest
	Role string `form:"role" binding:"omitempty,app_role"`
}

// AssignRoleRequest 修改角色请求
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,app_role"`
}

// ProfileResponse 用户信息响应（脱敏）
type ProfileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// CounselorOption 顾问下拉选项
type CounselorOption struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
