package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
)

// NoteRepository 申请备注数据访问接口（只追加，不更新）
type NoteRepository interface {
	Create(ctx context.Context, note *model.ApplicationNote) error
	ListByApplication(ctx context.Context, applicationID string) ([]model.ApplicationNote, error)
	ListByApplications(ctx context.Context, applicationIDs []string) ([]model.ApplicationNote, error)
}

type noteRepo struct {
	db *gorm.DB
}

// NewNoteRepo 创建 NoteRepository 实例
func NewNoteRepo(db *gorm.DB) NoteRepository {
	return &noteRepo{db: db}
}

// Create 序号由数据库分配，写入后回填到 note.Seq
func (r *noteRepo) Create(ctx context.Context, note *model.ApplicationNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

// ListByApplication 最新的备注在前
func (r *noteRepo) ListByApplication(ctx context.Context, applicationID string) ([]model.ApplicationNote, error) {
	var notes []model.ApplicationNote
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("seq DESC").
		Find(&notes).Error
	return notes, err
}

func (r *noteRepo) ListByApplications(ctx context.Context, applicationIDs []string) ([]model.ApplicationNote, error) {
	var notes []model.ApplicationNote
	if len(applicationIDs) == 0 {
		return notes, nil
	}
	err := r.db.WithContext(ctx).
		Where("application_id IN ?", applicationIDs).
		Order("application_id").
		Order("seq DESC").
		Find(&notes).Error
	return notes, err
}
