package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/dto"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/repository"
	pkgerrors "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/errors"
)

// ProfileService 用户档案业务接口
type ProfileService interface {
	Create(ctx context.Context, actor model.Actor, req *dto.CreateProfileRequest) (*dto.ProfileResponse, error)
	List(ctx context.Context, actor model.Actor, req *dto.ProfileListRequest) ([]dto.ProfileResponse, int64, error)
	CounselorOptions(ctx context.Context, actor model.Actor) ([]dto.CounselorOption, error)
	AssignRole(ctx context.Context, actor model.Actor, id string, req *dto.AssignRoleRequest) error
}

type profileService struct {
	repo      *repository.Repository
	dashboard DashboardService
	logger    *zap.Logger
}

// NewProfileService 创建 ProfileService 实例
func NewProfileService(repo *repository.Repository, dashboard DashboardService, logger *zap.Logger) ProfileService {
	return &profileService{repo: repo, dashboard: dashboard, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *profileService) Create(ctx context.Context, actor model.Actor, req *dto.CreateProfileRequest) (*dto.ProfileResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrRoleNotPermitted
	}
	role := model.Role(req.Role)
	if !role.Valid() {
		return nil, ErrUnknownRole
	}

	email := strings.TrimSpace(req.Email)
	if _, err := s.repo.Profile.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询邮箱失败", zap.Error(err))
		return nil, pkgerrors.Backend("profile.create", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	profile := &model.Profile{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if name := strings.TrimSpace(req.Username); name != "" {
		profile.Username = &name
	}

	if err := s.repo.Profile.Create(ctx, profile); err != nil {
		s.logger.Error("创建用户失败", zap.String("email", email), zap.Error(err))
		return nil, pkgerrors.Backend("profile.create", err)
	}

	s.logger.Info("创建用户",
		zap.String("id", profile.ID),
		zap.String("role", string(role)),
		zap.String("by", actor.ID))
	s.dashboard.Invalidate(ctx)

	resp := toProfileResponse(profile)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *profileService) List(ctx context.Context, actor model.Actor, req *dto.ProfileListRequest) ([]dto.ProfileResponse, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrRoleNotPermitted
	}

	profiles, total, err := s.repo.Profile.ListByRole(ctx, model.Role(req.Role), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, 0, pkgerrors.Backend("profile.list", err)
	}

	result := make([]dto.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		result = append(result, toProfileResponse(&profiles[i]))
	}
	return result, total, nil
}

// CounselorOptions 全部顾问（分配下拉框使用）
func (s *profileService) CounselorOptions(ctx context.Context, actor model.Actor) ([]dto.CounselorOption, error) {
	if !actor.Role.Valid() {
		return nil, ErrRoleNotPermitted
	}

	profiles, _, err := s.repo.Profile.ListByRole(ctx, model.RoleCounselor, 0, 0)
	if err != nil {
		s.logger.Error("查询顾问列表失败", zap.Error(err))
		return nil, pkgerrors.Backend("profile.counselors", err)
	}

	result := make([]dto.CounselorOption, 0, len(profiles))
	for i := range profiles {
		result = append(result, dto.CounselorOption{
			ID:       profiles[i].ID,
			Username: profiles[i].DisplayName(),
		})
	}
	return result, nil
}

// ────────────────────── AssignRole ──────────────────────

func (s *profileService) AssignRole(ctx context.Context, actor model.Actor, id string, req *dto.AssignRoleRequest) error {
	if !actor.IsAdmin() {
		return ErrRoleNotPermitted
	}
	if id == actor.ID {
		return ErrSelfRoleChange
	}
	role := model.Role(req.Role)
	if !role.Valid() {
		return ErrUnknownRole
	}

	current, err := s.repo.Profile.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		}
		return mapRepoErr("profile.assign_role", err, ErrProfileNotFound)
	}

	// 顾问降级时，名下申请与角色变更在同一事务内取消分配
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return pkgerrors.Backend("profile.assign_role", err)
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	var unassigned int64
	if current.Role == model.RoleCounselor && role != model.RoleCounselor {
		unassigned, err = txRepo.Application.UnassignCounselor(ctx, id)
		if err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("取消顾问分配失败", zap.String("id", id), zap.Error(err))
			return pkgerrors.Backend("profile.assign_role", err)
		}
	}

	if err := txRepo.Profile.UpdateRole(ctx, id, role); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("修改角色失败", zap.String("id", id), zap.Error(err))
		}
		return mapRepoErr("profile.assign_role", err, ErrProfileNotFound)
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return pkgerrors.Backend("profile.assign_role", err)
		}
	}

	s.logger.Info("修改角色",
		zap.String("id", id),
		zap.String("role", string(role)),
		zap.Int64("unassigned", unassigned),
		zap.String("by", actor.ID))
	s.dashboard.Invalidate(ctx)
	return nil
}
