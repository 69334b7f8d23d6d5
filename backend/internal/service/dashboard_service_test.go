package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/dto"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	pkgerrors "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/errors"
)

// seedStandard 2 started / 1 processing / 1 completed，全部分配给 c1
func seedStandard(env *testEnv) {
	env.seedApp("a", "c1", "", model.StatusStarted)
	env.seedApp("b", "c1", "", model.StatusStarted)
	env.seedApp("c", "c1", "", model.StatusProcessing)
	env.seedApp("d", "c1", "", model.StatusCompleted)
}

func TestDashboardService_Stats_WorkflowBuckets(t *testing.T) {
	env := newTestEnv(nil)
	seedStandard(env)
	env.seedApp("e", "", "", model.StatusDocumentsSubmitted)
	env.seedApp("f", "", "", model.StatusPaymentsProcessed)

	stats, err := env.svc.Dashboard.Stats(context.Background(), adminActor)
	if err != nil {
		t.Fatalf("Stats 应成功: %v", err)
	}
	want := dto.DashboardStats{Total: 6, New: 2, InProgress: 3, Completed: 1, Source: sourceRPC}
	if *stats != want {
		t.Errorf("期望 %+v，实际 %+v", want, *stats)
	}
}

func TestDashboardService_Stats_FallbackOnRPCError(t *testing.T) {
	env := newTestEnv(nil)
	seedStandard(env)
	env.apps.rpcErr = errors.New("function get_application_status_counts does not exist")

	stats, err := env.svc.Dashboard.Stats(context.Background(), counselorActor)
	if err != nil {
		t.Fatalf("聚合函数失败时应走本地计数: %v", err)
	}
	if stats.Source != sourceFallback {
		t.Errorf("期望 source=fallback，实际=%s", stats.Source)
	}
	if stats.Total != 4 || stats.New != 2 || stats.InProgress != 1 || stats.Completed != 1 {
		t.Errorf("本地计数结果错误: %+v", *stats)
	}
}

func TestDashboardService_Stats_BothPathsFail(t *testing.T) {
	env := newTestEnv(nil)
	env.apps.rpcErr = errors.New("rpc down")
	env.apps.statusErr = errors.New("db down")

	_, err := env.svc.Dashboard.Stats(context.Background(), adminActor)
	if !pkgerrors.IsBackend(err) {
		t.Errorf("期望 BackendError，实际=%v", err)
	}
}

func TestDashboardService_Stats_LegacyVocabularyNeverCrashes(t *testing.T) {
	env := newTestEnv(func(cfg *config.Config) { cfg.Dashboard.BucketVocabulary = config.VocabularyLegacy })
	seedStandard(env)
	env.apps.rpcErr = errors.New("rpc down")

	stats, err := env.svc.Dashboard.Stats(context.Background(), adminActor)
	if err != nil {
		t.Fatalf("未映射状态不应导致失败: %v", err)
	}
	if stats.New != 0 || stats.InProgress != 0 || stats.Completed != 0 || stats.Rejected != 0 {
		t.Errorf("未映射状态不应进入任何分桶: %+v", *stats)
	}
	if stats.Unclassified != 4 || stats.Total != 4 {
		t.Errorf("期望 unclassified=4 total=4，实际 %+v", *stats)
	}
}

func TestDashboardService_Stats_LegacyRowsBucketed(t *testing.T) {
	env := newTestEnv(func(cfg *config.Config) { cfg.Dashboard.BucketVocabulary = config.VocabularyLegacy })
	a := env.seedApp("a", "", "", model.StatusStarted)
	b := env.seedApp("b", "", "", model.StatusStarted)
	c := env.seedApp("c", "", "", model.StatusStarted)
	d := env.seedApp("d", "", "", model.StatusStarted)
	env.apps.rawStatus = map[string]string{
		a.ApplicationID: "pending",
		b.ApplicationID: "interview",
		c.ApplicationID: "rejected",
		d.ApplicationID: "archived",
	}
	env.apps.rpcErr = errors.New("rpc down")

	stats, err := env.svc.Dashboard.Stats(context.Background(), adminActor)
	if err != nil {
		t.Fatalf("Stats 应成功: %v", err)
	}
	if stats.New != 1 || stats.InProgress != 1 || stats.Rejected != 1 || stats.Unclassified != 1 {
		t.Errorf("分桶结果错误: %+v", *stats)
	}
}

func TestDashboardService_Stats_HeadcountsAdminOnly(t *testing.T) {
	env := newTestEnv(nil)
	env.profiles.add("c1", model.RoleCounselor, "Alice")
	env.profiles.add("c2", model.RoleCounselor, "Bob")
	env.profiles.add("agent-1", model.RoleAgent, "Eve")

	stats, err := env.svc.Dashboard.Stats(context.Background(), adminActor)
	if err != nil {
		t.Fatalf("Stats 应成功: %v", err)
	}
	if stats.TotalCounselors != 2 || stats.TotalAgents != 1 {
		t.Errorf("期望 2 名顾问 1 名代理，实际 %+v", *stats)
	}

	stats, err = env.svc.Dashboard.Stats(context.Background(), counselorActor)
	if err != nil {
		t.Fatalf("Stats 应成功: %v", err)
	}
	if stats.TotalCounselors != 0 || stats.TotalAgents != 0 {
		t.Errorf("非管理员不应统计人数，实际 %+v", *stats)
	}
}

func TestDashboardService_Stats_EmptyIsZero(t *testing.T) {
	env := newTestEnv(nil)
	stats, err := env.svc.Dashboard.Stats(context.Background(), agentActor)
	if err != nil {
		t.Fatalf("Stats 应成功: %v", err)
	}
	if stats.Total != 0 || stats.New != 0 || stats.Unclassified != 0 {
		t.Errorf("无数据时计数应为 0，实际 %+v", *stats)
	}
}

func TestDashboardService_Stats_CacheAndInvalidate(t *testing.T) {
	env := newTestEnv(nil)
	seedStandard(env)
	ctx := context.Background()

	if _, err := env.svc.Dashboard.Stats(ctx, adminActor); err != nil {
		t.Fatalf("Stats 应成功: %v", err)
	}
	if _, err := env.svc.Dashboard.Stats(ctx, adminActor); err != nil {
		t.Fatalf("Stats 应成功: %v", err)
	}
	if env.apps.rpcCalls != 1 {
		t.Errorf("第二次应命中缓存，实际调用聚合函数 %d 次", env.apps.rpcCalls)
	}

	// 写操作后缓存失效
	app := env.seedApp("e", "", "", model.StatusStarted)
	if _, err := env.svc.Application.SetStatus(ctx, adminActor, app.ApplicationID, "completed"); err != nil {
		t.Fatalf("SetStatus 应成功: %v", err)
	}
	stats, err := env.svc.Dashboard.Stats(ctx, adminActor)
	if err != nil {
		t.Fatalf("Stats 应成功: %v", err)
	}
	if env.apps.rpcCalls != 2 {
		t.Errorf("写操作后应重新计算，实际调用聚合函数 %d 次", env.apps.rpcCalls)
	}
	if stats.Total != 5 || stats.Completed != 2 {
		t.Errorf("重新计算结果错误: %+v", *stats)
	}
}

func TestDashboardService_CounselorStats(t *testing.T) {
	env := newTestEnv(nil)
	env.profiles.add("c1", model.RoleCounselor, "Alice")
	env.profiles.add("c2", model.RoleCounselor, "")
	seedStandard(env)

	result, err := env.svc.Dashboard.CounselorStats(context.Background(), adminActor)
	if err != nil {
		t.Fatalf("CounselorStats 应成功: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("期望 2 名顾问（含无申请的），实际=%d", len(result))
	}
	first := result[0]
	if first.CounselorID != "c1" || first.Total != 4 || first.Started != 2 || first.Processing != 1 || first.Completed != 1 {
		t.Errorf("c1 统计错误: %+v", first)
	}
	if result[1].CounselorName != UnknownCounselor || result[1].Total != 0 {
		t.Errorf("c2 统计错误: %+v", result[1])
	}

	if _, err := env.svc.Dashboard.CounselorStats(context.Background(), counselorActor); !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("非管理员: 期望 ErrForbidden，实际=%v", err)
	}
}
