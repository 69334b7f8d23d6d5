package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/dto"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/repository"
	pkgerrors "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/errors"
	redisclient "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/redis"
)

// ── 统计分桶 ──

type bucket int

const (
	bucketNew bucket = iota + 1
	bucketInProgress
	bucketCompleted
	bucketRejected
)

// bucketTables 状态 → 统计分桶映射表，按 dashboard.bucket_vocabulary 选用
// 表中没有的状态不进入任何分桶，计入 unclassified
var bucketTables = map[string]map[string]bucket{
	config.VocabularyWorkflow: {
		string(model.StatusStarted):            bucketNew,
		string(model.StatusProcessing):         bucketInProgress,
		string(model.StatusDocumentsSubmitted): bucketInProgress,
		string(model.StatusPaymentsProcessed):  bucketInProgress,
		string(model.StatusCompleted):          bucketCompleted,
	},
	config.VocabularyLegacy: {
		"pending":   bucketNew,
		"review":    bucketInProgress,
		"interview": bucketInProgress,
		"accepted":  bucketCompleted,
		"rejected":  bucketRejected,
	},
}

const (
	sourceRPC      = "rpc"
	sourceFallback = "fallback"

	statsVersionKey = "dashboard:stats:version"
)

// DashboardService 仪表盘统计业务接口
type DashboardService interface {
	Stats(ctx context.Context, actor model.Actor) (*dto.DashboardStats, error)
	CounselorStats(ctx context.Context, actor model.Actor) ([]dto.CounselorStats, error)
	// Invalidate 任何写操作后调用，使所有已缓存的统计失效
	Invalidate(ctx context.Context)
}

type dashboardService struct {
	repo       *repository.Repository
	cache      Cache
	cacheTTL   time.Duration
	table      map[string]bucket
	agentScope string
	logger     *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例；cache 为 nil 时每次实时计算
func NewDashboardService(cfg *config.Config, repo *repository.Repository, cache Cache, logger *zap.Logger) DashboardService {
	table, ok := bucketTables[cfg.Dashboard.BucketVocabulary]
	if !ok {
		table = bucketTables[config.VocabularyWorkflow]
	}
	return &dashboardService{
		repo:       repo,
		cache:      cache,
		cacheTTL:   cfg.Dashboard.CacheTTL,
		table:      table,
		agentScope: cfg.Access.AgentScope,
		logger:     logger,
	}
}

// ────────────────────── Stats ──────────────────────

// Stats 无副作用，可重复调用；结果按操作者缓存，版本号变化即失效
func (s *dashboardService) Stats(ctx context.Context, actor model.Actor) (*dto.DashboardStats, error) {
	filter, err := visibilityFilter(actor, s.agentScope)
	if err != nil {
		return nil, err
	}

	key := s.cacheKey(ctx, actor)
	if cached := s.readCache(ctx, key); cached != nil {
		return cached, nil
	}

	stats := &dto.DashboardStats{}
	var counts []repository.StatusCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, stats.Source, err = s.statusCounts(gctx, filter)
		return err
	})
	if actor.IsAdmin() {
		g.Go(func() error {
			n, err := s.repo.Profile.CountByRole(gctx, model.RoleCounselor)
			if err != nil {
				return pkgerrors.Backend("dashboard.count_counselors", err)
			}
			stats.TotalCounselors = n
			return nil
		})
		g.Go(func() error {
			n, err := s.repo.Profile.CountByRole(gctx, model.RoleAgent)
			if err != nil {
				return pkgerrors.Backend("dashboard.count_agents", err)
			}
			stats.TotalAgents = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("计算仪表盘统计失败", zap.String("actor", actor.ID), zap.Error(err))
		return nil, err
	}

	unmapped := s.tally(stats, counts)
	if len(unmapped) > 0 {
		s.logger.Warn("存在未映射到统计分桶的状态",
			zap.Strings("statuses", unmapped),
			zap.Int64("unclassified", stats.Unclassified))
	}

	s.writeCache(ctx, key, stats)
	return stats, nil
}

// statusCounts 优先调用数据库聚合函数，失败时改为拉取原始状态在本地计数
func (s *dashboardService) statusCounts(ctx context.Context, filter repository.ApplicationFilter) ([]repository.StatusCount, string, error) {
	counts, err := s.repo.Application.StatusCounts(ctx, filter)
	if err == nil {
		return counts, sourceRPC, nil
	}
	s.logger.Warn("状态聚合函数调用失败，改用本地计数", zap.Error(err))

	statuses, err := s.repo.Application.ListStatuses(ctx, filter)
	if err != nil {
		return nil, "", pkgerrors.Backend("dashboard.status_counts", err)
	}
	return countStatuses(statuses), sourceFallback, nil
}

// countStatuses 按原始状态值计数，保持首次出现顺序
func countStatuses(statuses []string) []repository.StatusCount {
	index := make(map[string]int)
	var counts []repository.StatusCount
	for _, st := range statuses {
		i, ok := index[st]
		if !ok {
			i = len(counts)
			index[st] = i
			counts = append(counts, repository.StatusCount{Status: st})
		}
		counts[i].Count++
	}
	return counts
}

// tally 将计数归入分桶，返回未映射的状态值
func (s *dashboardService) tally(stats *dto.DashboardStats, counts []repository.StatusCount) []string {
	var unmapped []string
	for _, c := range counts {
		stats.Total += c.Count
		switch s.table[c.Status] {
		case bucketNew:
			stats.New += c.Count
		case bucketInProgress:
			stats.InProgress += c.Count
		case bucketCompleted:
			stats.Completed += c.Count
		case bucketRejected:
			stats.Rejected += c.Count
		default:
			stats.Unclassified += c.Count
			unmapped = append(unmapped, c.Status)
		}
	}
	return unmapped
}

// ────────────────────── CounselorStats ──────────────────────

// CounselorStats 每位顾问名下各状态申请数（仅管理员），无申请的顾问也会列出
func (s *dashboardService) CounselorStats(ctx context.Context, actor model.Actor) ([]dto.CounselorStats, error) {
	if !actor.IsAdmin() {
		return nil, ErrRoleNotPermitted
	}

	var (
		counselors []model.Profile
		rows       []repository.CounselorStatusCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counselors, _, err = s.repo.Profile.ListByRole(gctx, model.RoleCounselor, 0, 0)
		return pkgerrors.Backend("dashboard.list_counselors", err)
	})
	g.Go(func() error {
		var err error
		rows, err = s.repo.Application.CountByCounselorAndStatus(gctx)
		return pkgerrors.Backend("dashboard.counselor_counts", err)
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("计算顾问统计失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.CounselorStats, 0, len(counselors))
	index := make(map[string]int, len(counselors))
	for i := range counselors {
		name := UnknownCounselor
		if u := counselors[i].Username; u != nil && *u != "" {
			name = *u
		}
		index[counselors[i].ID] = len(result)
		result = append(result, dto.CounselorStats{CounselorID: counselors[i].ID, CounselorName: name})
	}

	var orphans []string
	for _, r := range rows {
		i, ok := index[r.CounselorID]
		if !ok {
			// 降级时会同步取消分配，这里只兜底历史数据
			i = len(result)
			index[r.CounselorID] = i
			result = append(result, dto.CounselorStats{CounselorID: r.CounselorID, CounselorName: UnknownCounselor})
			orphans = append(orphans, r.CounselorID)
		}
		cs := &result[i]
		cs.Total += r.Count
		switch model.ApplicationStatus(r.Status) {
		case model.StatusStarted:
			cs.Started += r.Count
		case model.StatusProcessing:
			cs.Processing += r.Count
		case model.StatusDocumentsSubmitted:
			cs.DocumentsSubmitted += r.Count
		case model.StatusPaymentsProcessed:
			cs.PaymentsProcessed += r.Count
		case model.StatusCompleted:
			cs.Completed += r.Count
		}
	}
	if len(orphans) > 0 {
		s.logger.Warn("部分申请分配给了非顾问角色的用户", zap.Strings("ids", orphans))
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Total > result[j].Total })
	return result, nil
}

// ────────────────────── Cache ──────────────────────

func (s *dashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, statsVersionKey); err != nil {
		s.logger.Warn("统计缓存失效失败", zap.Error(err))
	}
}

// cacheKey 版本号读取失败时返回空串，本次不走缓存
func (s *dashboardService) cacheKey(ctx context.Context, actor model.Actor) string {
	if s.cache == nil || s.cacheTTL <= 0 {
		return ""
	}
	version, err := s.cache.GetInt(ctx, statsVersionKey)
	if err != nil {
		s.logger.Warn("读取统计缓存版本失败", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("dashboard:stats:v%d:%s:%s", version, actor.Role, actor.ID)
}

func (s *dashboardService) readCache(ctx context.Context, key string) *dto.DashboardStats {
	if key == "" {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redisclient.ErrCacheMiss) {
			s.logger.Warn("读取统计缓存失败", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var stats dto.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn("统计缓存内容损坏", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &stats
}

func (s *dashboardService) writeCache(ctx context.Context, key string, stats *dto.DashboardStats) {
	if key == "" {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn("写入统计缓存失败", zap.String("key", key), zap.Error(err))
	}
}
