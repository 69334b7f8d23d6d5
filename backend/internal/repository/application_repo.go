package repository

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
)

// CounselorNone 表单里“未分配顾问”的占位值，落库前统一转成 NULL
const CounselorNone = "none"

// ApplicationFilter 申请列表过滤条件；空字段表示不过滤
type ApplicationFilter struct {
	CounselorID string
	AgentID     string
	Status      model.ApplicationStatus
	Keyword     string // 客户姓名 / 邮箱 / 电话模糊匹配
}

// ApplicationPatch 申请部分更新；nil 字段保持原值
type ApplicationPatch struct {
	ClientName         *string
	ClientEmail        *string // 空串清空为 NULL
	PhoneNumber        *string
	CompletedCourse    *model.EducationLevel
	PlannedCourses     *[]string
	PreferredLocations *[]string
	PreferredColleges  *[]string
	CounselorID        *string // "none" 或空串清空为 NULL
	ApplicationStatus  *model.ApplicationStatus
}

// IsEmpty 是否没有任何字段需要更新
func (p *ApplicationPatch) IsEmpty() bool {
	return p.ClientName == nil && p.ClientEmail == nil && p.PhoneNumber == nil &&
		p.CompletedCourse == nil && p.PlannedCourses == nil && p.PreferredLocations == nil &&
		p.PreferredColleges == nil && p.CounselorID == nil && p.ApplicationStatus == nil
}

// columns 生成更新列；占位值归一化只在这里做一次
func (p *ApplicationPatch) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.ClientName != nil {
		cols["client_name"] = *p.ClientName
	}
	if p.ClientEmail != nil {
		cols["client_email"] = nullableString(*p.ClientEmail)
	}
	if p.PhoneNumber != nil {
		cols["phone_number"] = *p.PhoneNumber
	}
	if p.CompletedCourse != nil {
		cols["completed_course"] = *p.CompletedCourse
	}
	if p.PlannedCourses != nil {
		cols["planned_courses"] = stringArray(*p.PlannedCourses)
	}
	if p.PreferredLocations != nil {
		cols["preferred_locations"] = stringArray(*p.PreferredLocations)
	}
	if p.PreferredColleges != nil {
		cols["preferred_colleges"] = stringArray(*p.PreferredColleges)
	}
	if p.CounselorID != nil {
		cols["counselor_id"] = NormalizeCounselorID(*p.CounselorID)
	}
	if p.ApplicationStatus != nil {
		cols["application_status"] = *p.ApplicationStatus
	}
	cols["updated_at"] = gorm.Expr("clock_timestamp()")
	return cols
}

// NormalizeCounselorID 占位值 "none"（不区分大小写）与空白统一为 nil
func NormalizeCounselorID(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, CounselorNone) {
		return nil
	}
	return &v
}

// StatusCount 单个状态的计数
type StatusCount struct {
	Status string `gorm:"column:application_status"`
	Count  int64  `gorm:"column:count"`
}

// CounselorStatusCount 顾问 × 状态计数
type CounselorStatusCount struct {
	CounselorID string `gorm:"column:counselor_id"`
	Status      string `gorm:"column:application_status"`
	Count       int64  `gorm:"column:count"`
}

// ApplicationRepository 申请数据访问接口
type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	List(ctx context.Context, filter ApplicationFilter, offset, limit int) ([]model.Application, int64, error)
	ApplyPatch(ctx context.Context, id string, patch *ApplicationPatch) error
	UpdateStatus(ctx context.Context, id string, status model.ApplicationStatus) error
	Touch(ctx context.Context, id string) error
	UnassignCounselor(ctx context.Context, counselorID string) (int64, error)
	StatusCounts(ctx context.Context, filter ApplicationFilter) ([]StatusCount, error)
	ListStatuses(ctx context.Context, filter ApplicationFilter) ([]string, error)
	CountByCounselorAndStatus(ctx context.Context) ([]CounselorStatusCount, error)
}

// applicationRepo ApplicationRepository 的 GORM 实现
type applicationRepo struct {
	db *gorm.DB
}

// NewApplicationRepo 创建 ApplicationRepository 实例
func NewApplicationRepo(db *gorm.DB) ApplicationRepository {
	return &applicationRepo{db: db}
}

func (r *applicationRepo) Create(ctx context.Context, app *model.Application) error {
	if app.CounselorID != nil {
		app.CounselorID = NormalizeCounselorID(*app.CounselorID)
	}
	if app.PreferredColleges == nil {
		app.PreferredColleges = pq.StringArray{}
	}
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*model.Application, error) {
	var app model.Application
	err := r.db.WithContext(ctx).
		Where("application_id = ?", id).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// List limit <= 0 时返回全部（导出使用）
func (r *applicationRepo) List(ctx context.Context, filter ApplicationFilter, offset, limit int) ([]model.Application, int64, error) {
	var apps []model.Application
	var total int64

	db := applyFilter(r.db.WithContext(ctx).Model(&model.Application{}), filter)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Order("created_at DESC").Order("application_id")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&apps).Error; err != nil {
		return nil, 0, err
	}

	return apps, total, nil
}

func (r *applicationRepo) ApplyPatch(ctx context.Context, id string, patch *ApplicationPatch) error {
	result := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("application_id = ?", id).
		Updates(patch.columns())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateStatus 状态与 updated_at 在同一条语句中更新
func (r *applicationRepo) UpdateStatus(ctx context.Context, id string, status model.ApplicationStatus) error {
	return r.ApplyPatch(ctx, id, &ApplicationPatch{ApplicationStatus: &status})
}

func (r *applicationRepo) Touch(ctx context.Context, id string) error {
	return r.ApplyPatch(ctx, id, &ApplicationPatch{})
}

// UnassignCounselor 清空某顾问名下全部申请的 counselor_id，返回受影响行数
func (r *applicationRepo) UnassignCounselor(ctx context.Context, counselorID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("counselor_id = ?", counselorID).
		Updates(map[string]interface{}{
			"counselor_id": nil,
			"updated_at":   gorm.Expr("clock_timestamp()"),
		})
	return result.RowsAffected, result.Error
}

// StatusCounts 调用数据库聚合函数 get_application_status_counts
func (r *applicationRepo) StatusCounts(ctx context.Context, filter ApplicationFilter) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Raw("SELECT application_status, count FROM get_application_status_counts(?::uuid, ?::uuid)",
			nullableString(filter.AgentID), nullableString(filter.CounselorID)).
		Scan(&rows).Error
	return rows, err
}

// ListStatuses 取出范围内每条记录的原始状态值，供本地计数
func (r *applicationRepo) ListStatuses(ctx context.Context, filter ApplicationFilter) ([]string, error) {
	var statuses []string
	err := applyFilter(r.db.WithContext(ctx).Model(&model.Application{}), filter).
		Pluck("application_status", &statuses).Error
	return statuses, err
}

func (r *applicationRepo) CountByCounselorAndStatus(ctx context.Context) ([]CounselorStatusCount, error) {
	var rows []CounselorStatusCount
	err := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Select("counselor_id, application_status, COUNT(*) AS count").
		Where("counselor_id IS NOT NULL").
		Group("counselor_id, application_status").
		Scan(&rows).Error
	return rows, err
}

// ── 内部辅助 ──

func applyFilter(db *gorm.DB, f ApplicationFilter) *gorm.DB {
	if f.CounselorID != "" {
		db = db.Where("counselor_id = ?", f.CounselorID)
	}
	if f.AgentID != "" {
		db = db.Where("agent_id = ?", f.AgentID)
	}
	if f.Status != "" {
		db = db.Where("application_status = ?", f.Status)
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		val := "%" + escapeLike(kw) + "%"
		db = db.Where("(client_name ILIKE ? OR client_email ILIKE ? OR phone_number ILIKE ?)", val, val, val)
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func nullableString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func stringArray(v []string) pq.StringArray {
	if v == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(v)
}

// [自证通过] internal/repository/application_repo.go
