package dto

// ── 仪表盘模块 DTO ──

// DashboardStats 仪表盘统计；所有计数缺省为 0
type DashboardStats struct {
	Total           int64  `json:"total"`
	New             int64  `json:"new"`
	InProgress      int64  `json:"in_progress"`
	Completed       int64  `json:"completed"`
	Rejected        int64  `json:"rejected"`
	Unclassified    int64  `json:"unclassified"` // 未映射到任何分桶的记录数
	TotalCounselors int64  `json:"total_counselors"`
	TotalAgents     int64  `json:"total_agents"`
	Source          string `json:"source"` // rpc | fallback
}

// CounselorStats 单个顾问名下各状态的申请数
type CounselorStats struct {
	CounselorID        string `json:"counselor_id"`
	CounselorName      string `json:"counselor_name"`
	Total              int64  `json:"total"`
	Started            int64  `json:"started"`
	Processing         int64  `json:"processing"`
	DocumentsSubmitted int64  `json:"documents_submitted"`
	PaymentsProcessed  int64  `json:"payments_processed"`
	Completed          int64  `json:"completed"`
}
