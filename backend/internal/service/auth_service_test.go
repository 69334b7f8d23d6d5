package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/dto"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/repository"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/jwt"
)

// ── 测试辅助 ──

func setupTestAuthService(t *testing.T) (AuthService, *mockProfileRepo, *mockTokenStore, *jwt.Manager) {
	t.Helper()
	profiles := newMockProfileRepo()
	store := newMockTokenStore()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-tests",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := &repository.Repository{Profile: profiles}

	hash, err := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	name := "Alice"
	profiles.profiles["u-1"] = &model.Profile{
		ID:           "u-1",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         model.RoleCounselor,
		Username:     &name,
	}

	return NewAuthService(cfg, repo, jwtMgr, store, zap.NewNop()), profiles, store, jwtMgr
}

// ── Login 测试 ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, _, _, jwtMgr := setupTestAuthService(t)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "Alice@Example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if resp.User.Role != "counselor" || resp.User.Username != "Alice" {
		t.Errorf("用户信息错误: %+v", resp.User)
	}
	if resp.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", resp.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 无法解析: %v", err)
	}
	if claims.UserID != "u-1" || claims.Role != "counselor" {
		t.Errorf("Claims 错误: %+v", claims)
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("密码错误: 期望 ErrInvalidCredentials，实际=%v", err)
	}
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "Password123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("用户不存在: 期望 ErrInvalidCredentials，实际=%v", err)
	}
}

// ── Refresh / Logout 测试 ──

func TestAuthService_Refresh_RotatesAndPicksUpRole(t *testing.T) {
	svc, profiles, store, jwtMgr := setupTestAuthService(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "alice@example.com", Password: "Password123", RememberMe: true})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	profiles.profiles["u-1"].Role = model.RoleAdmin

	refreshed, err := svc.RefreshToken(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken 应成功: %v", err)
	}
	claims, _ := jwtMgr.ParseToken(refreshed.AccessToken)
	if claims.Role != "admin" {
		t.Errorf("刷新后应使用最新角色，实际=%s", claims.Role)
	}
	newRefresh, _ := jwtMgr.ParseToken(refreshed.RefreshToken)
	if !newRefresh.RememberMe {
		t.Error("刷新后应保留 remember_me")
	}

	old, _ := jwtMgr.ParseToken(login.RefreshToken)
	if _, ok := store.revoked[old.ID]; !ok {
		t.Error("旧 Refresh Token 应加入黑名单")
	}
	if _, err := svc.RefreshToken(ctx, login.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("重复使用旧 Refresh Token: 期望 ErrTokenRevoked，实际=%v", err)
	}
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	svc, _, _, jwtMgr := setupTestAuthService(t)
	access, _ := jwtMgr.GenerateAccessToken("u-1", "counselor")

	if _, err := svc.RefreshToken(context.Background(), access); !errors.Is(err, jwt.ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}
}

func TestAuthService_Logout_Blacklists(t *testing.T) {
	svc, _, store, jwtMgr := setupTestAuthService(t)
	access, _ := jwtMgr.GenerateAccessToken("u-1", "counselor")
	claims, _ := jwtMgr.ParseToken(access)

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	ttl, ok := store.revoked[claims.ID]
	if !ok {
		t.Fatal("Logout 后 jti 应在黑名单中")
	}
	if ttl <= 0 || ttl > 15*time.Minute {
		t.Errorf("黑名单 TTL 应为剩余有效期，实际=%v", ttl)
	}
}

func TestAuthService_GetCurrentUser(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(t)

	me, err := svc.GetCurrentUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetCurrentUser 应成功: %v", err)
	}
	if me.Email != "alice@example.com" {
		t.Errorf("期望 Email=alice@example.com，实际=%s", me.Email)
	}
	if _, err := svc.GetCurrentUser(context.Background(), "missing"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("期望 ErrProfileNotFound，实际=%v", err)
	}
}
