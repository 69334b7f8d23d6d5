package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/repository"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/jwt"
	redisclient "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/redis"
)

// ── Mock ProfileRepository ──

type mockProfileRepo struct {
	mu           sync.Mutex
	profiles     map[string]*model.Profile
	listByIDsErr error
	countErr     error
	listByIDs    int // ListByIDs 调用次数
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*model.Profile)}
}

// add 直接放入一条档案（测试数据准备）
func (m *mockProfileRepo) add(id string, role model.Role, username string) *model.Profile {
	p := &model.Profile{ID: id, Email: id + "@example.com", Role: role}
	if username != "" {
		p.Username = &username
	}
	m.profiles[id] = p
	return p
}

func (m *mockProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if profile.ID == "" {
		profile.ID = fmt.Sprintf("profile-%d", len(m.profiles)+1)
	}
	profile.CreatedAt = time.Now()
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) ListByIDs(_ context.Context, ids []string) ([]model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listByIDs++
	if m.listByIDsErr != nil {
		return nil, m.listByIDsErr
	}
	var result []model.Profile
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockProfileRepo) ListByRole(_ context.Context, role model.Role, offset, limit int) ([]model.Profile, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Profile
	for _, p := range m.profiles {
		if role == "" || p.Role == role {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	total := int64(len(result))
	if limit > 0 {
		if offset > len(result) {
			offset = len(result)
		}
		end := offset + limit
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, total, nil
}

func (m *mockProfileRepo) CountByRole(_ context.Context, role model.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	var n int64
	for _, p := range m.profiles {
		if p.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *mockProfileRepo) UpdateRole(_ context.Context, id string, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Role = role
	return nil
}

// ── Mock ApplicationRepository ──

type mockApplicationRepo struct {
	mu          sync.Mutex
	apps        map[string]*model.Application
	seq         int
	clock       time.Time
	listErr     error
	rpcErr      error
	statusErr   error
	unassignErr error
	rpcCalls    int
	rawStatus   map[string]string // 覆盖 ListStatuses 返回的原始状态，模拟旧数据
}

func newMockApplicationRepo() *mockApplicationRepo {
	return &mockApplicationRepo{
		apps:  make(map[string]*model.Application),
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick 单调递增的时钟，保证每次写入的 updated_at 严格变大
func (m *mockApplicationRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockApplicationRepo) Create(_ context.Context, app *model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if app.ApplicationID == "" {
		app.ApplicationID = fmt.Sprintf("app-%03d", m.seq)
	}
	if app.CounselorID != nil {
		app.CounselorID = repository.NormalizeCounselorID(*app.CounselorID)
	}
	if app.PreferredColleges == nil {
		app.PreferredColleges = []string{}
	}
	now := m.tick()
	app.CreatedAt, app.UpdatedAt = now, now
	cp := *app
	m.apps[app.ApplicationID] = &cp
	return nil
}

func (m *mockApplicationRepo) GetByID(_ context.Context, id string) (*model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.apps[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApplicationRepo) matches(a *model.Application, f repository.ApplicationFilter) bool {
	if f.CounselorID != "" && (a.CounselorID == nil || *a.CounselorID != f.CounselorID) {
		return false
	}
	if f.AgentID != "" && (a.AgentID == nil || *a.AgentID != f.AgentID) {
		return false
	}
	if f.Status != "" && a.ApplicationStatus != f.Status {
		return false
	}
	if f.Keyword != "" && !strings.Contains(strings.ToLower(a.ClientName), strings.ToLower(f.Keyword)) {
		return false
	}
	return true
}

func (m *mockApplicationRepo) List(_ context.Context, f repository.ApplicationFilter, offset, limit int) ([]model.Application, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var result []model.Application
	for _, a := range m.apps {
		if m.matches(a, f) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := int64(len(result))
	if limit > 0 {
		if offset > len(result) {
			offset = len(result)
		}
		end := offset + limit
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, total, nil
}

func (m *mockApplicationRepo) ApplyPatch(_ context.Context, id string, p *repository.ApplicationPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.ClientName != nil {
		a.ClientName = *p.ClientName
	}
	if p.ClientEmail != nil {
		a.ClientEmail = p.ClientEmail
		if *p.ClientEmail == "" {
			a.ClientEmail = nil
		}
	}
	if p.PhoneNumber != nil {
		a.PhoneNumber = *p.PhoneNumber
	}
	if p.CompletedCourse != nil {
		a.CompletedCourse = *p.CompletedCourse
	}
	if p.PlannedCourses != nil {
		a.PlannedCourses = *p.PlannedCourses
	}
	if p.PreferredLocations != nil {
		a.PreferredLocations = *p.PreferredLocations
	}
	if p.PreferredColleges != nil {
		a.PreferredColleges = *p.PreferredColleges
	}
	if p.CounselorID != nil {
		a.CounselorID = repository.NormalizeCounselorID(*p.CounselorID)
	}
	if p.ApplicationStatus != nil {
		a.ApplicationStatus = *p.ApplicationStatus
	}
	a.UpdatedAt = m.tick()
	return nil
}

func (m *mockApplicationRepo) UpdateStatus(ctx context.Context, id string, status model.ApplicationStatus) error {
	return m.ApplyPatch(ctx, id, &repository.ApplicationPatch{ApplicationStatus: &status})
}

func (m *mockApplicationRepo) Touch(ctx context.Context, id string) error {
	return m.ApplyPatch(ctx, id, &repository.ApplicationPatch{})
}

func (m *mockApplicationRepo) UnassignCounselor(_ context.Context, counselorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unassignErr != nil {
		return 0, m.unassignErr
	}
	var n int64
	for _, a := range m.apps {
		if a.CounselorID != nil && *a.CounselorID == counselorID {
			a.CounselorID = nil
			a.UpdatedAt = m.tick()
			n++
		}
	}
	return n, nil
}

func (m *mockApplicationRepo) StatusCounts(_ context.Context, f repository.ApplicationFilter) ([]repository.StatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rpcCalls++
	if m.rpcErr != nil {
		return nil, m.rpcErr
	}
	counts := map[string]int64{}
	for _, a := range m.apps {
		if m.matches(a, f) {
			counts[string(a.ApplicationStatus)]++
		}
	}
	var rows []repository.StatusCount
	for st, n := range counts {
		rows = append(rows, repository.StatusCount{Status: st, Count: n})
	}
	return rows, nil
}

func (m *mockApplicationRepo) ListStatuses(_ context.Context, f repository.ApplicationFilter) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	var result []string
	for id, a := range m.apps {
		if !m.matches(a, f) {
			continue
		}
		if raw, ok := m.rawStatus[id]; ok {
			result = append(result, raw)
			continue
		}
		result = append(result, string(a.ApplicationStatus))
	}
	return result, nil
}

func (m *mockApplicationRepo) CountByCounselorAndStatus(_ context.Context) ([]repository.CounselorStatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[[2]string]int64{}
	for _, a := range m.apps {
		if a.CounselorID != nil {
			counts[[2]string{*a.CounselorID, string(a.ApplicationStatus)}]++
		}
	}
	var rows []repository.CounselorStatusCount
	for k, n := range counts {
		rows = append(rows, repository.CounselorStatusCount{CounselorID: k[0], Status: k[1], Count: n})
	}
	return rows, nil
}

// ── Mock NoteRepository ──

type mockNoteRepo struct {
	mu        sync.Mutex
	notes     []model.ApplicationNote
	seq       int64
	createErr error
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{}
}

func (m *mockNoteRepo) Create(_ context.Context, note *model.ApplicationNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	note.Seq = m.seq
	note.NoteID = fmt.Sprintf("note-%d", m.seq)
	note.CreatedAt = time.Now()
	m.notes = append(m.notes, *note)
	return nil
}

func (m *mockNoteRepo) ListByApplication(_ context.Context, applicationID string) ([]model.ApplicationNote, error) {
	return m.ListByApplications(context.Background(), []string{applicationID})
}

func (m *mockNoteRepo) ListByApplications(_ context.Context, ids []string) ([]model.ApplicationNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var result []model.ApplicationNote
	for _, n := range m.notes {
		if want[n.ApplicationID] {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq > result[j].Seq })
	return result, nil
}

// ── Mock Cache / TokenStore ──

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ints map[string]int64
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte), ints: make(map[string]int64)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, redisclient.ErrCacheMiss
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ints[key]++
	return m.ints[key], nil
}

func (m *mockCache) GetInt(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ints[key], nil
}

type mockTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{revoked: make(map[string]time.Duration)}
}

func (m *mockTokenStore) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = ttl
	return nil
}

func (m *mockTokenStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

// ── 测试装配 ──

type testEnv struct {
	cfg      *config.Config
	repo     *repository.Repository
	profiles *mockProfileRepo
	apps     *mockApplicationRepo
	notes    *mockNoteRepo
	cache    *mockCache
	svc      *Service
}

// newTestEnv 使用 mock 仓储装配全部 Service；mutate 可在装配前调整配置
func newTestEnv(mutate func(cfg *config.Config)) *testEnv {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-tests",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Dashboard: config.DashboardConfig{CacheTTL: time.Minute, BucketVocabulary: config.VocabularyWorkflow},
		Access:    config.AccessConfig{AgentScope: config.AgentScopeOwn},
		Import:    config.ImportConfig{MaxRows: 100},
	}
	if mutate != nil {
		mutate(cfg)
	}

	env := &testEnv{
		cfg:      cfg,
		profiles: newMockProfileRepo(),
		apps:     newMockApplicationRepo(),
		notes:    newMockNoteRepo(),
		cache:    newMockCache(),
	}
	env.repo = &repository.Repository{
		Profile:     env.profiles,
		Application: env.apps,
		Note:        env.notes,
	}
	env.svc = NewService(cfg, env.repo, jwt.NewManager(&cfg.Auth), newMockTokenStore(), env.cache, zap.NewNop())
	return env
}

// 常用操作者
var (
	adminActor     = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	counselorActor = model.Actor{ID: "c1", Role: model.RoleCounselor}
	agentActor     = model.Actor{ID: "agent-1", Role: model.RoleAgent}
)

// seedApp 直接写入一条申请
func (e *testEnv) seedApp(name string, counselorID, agentID string, status model.ApplicationStatus) *model.Application {
	app := &model.Application{
		ClientName:         name,
		PhoneNumber:        "+15550100",
		CompletedCourse:    model.EducationOther,
		PlannedCourses:     []string{"MBA"},
		PreferredLocations: []string{"Kochi"},
		ApplicationStatus:  status,
	}
	if counselorID != "" {
		app.CounselorID = &counselorID
	}
	if agentID != "" {
		app.AgentID = &agentID
	}
	_ = e.apps.Create(context.Background(), app)
	return app
}
