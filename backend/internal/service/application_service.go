package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/dto"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/repository"
	pkgerrors "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/errors"
)

// UnknownCounselor 顾问姓名解析失败时的占位值
const UnknownCounselor = "Unknown Counselor"

// ApplicationService 申请业务接口
type ApplicationService interface {
	List(ctx context.Context, actor model.Actor, req *dto.ApplicationListRequest) ([]dto.ApplicationResponse, int64, error)
	ListAll(ctx context.Context, actor model.Actor) ([]dto.ApplicationResponse, error)
	Get(ctx context.Context, actor model.Actor, id string) (*dto.ApplicationResponse, error)
	Create(ctx context.Context, actor model.Actor, req *dto.CreateApplicationRequest) (*dto.ApplicationResponse, error)
	Update(ctx context.Context, actor model.Actor, id string, req *dto.UpdateApplicationRequest) (*dto.ApplicationResponse, error)
	SetStatus(ctx context.Context, actor model.Actor, id, status string) (*dto.ApplicationResponse, error)
	AppendNote(ctx context.Context, actor model.Actor, id, text string) (*dto.NoteResponse, error)
	ListNotes(ctx context.Context, actor model.Actor, id string) ([]dto.NoteResponse, error)
}

type applicationService struct {
	repo       *repository.Repository
	dashboard  DashboardService
	agentScope string
	logger     *zap.Logger
}

// NewApplicationService 创建 ApplicationService 实例
func NewApplicationService(cfg *config.Config, repo *repository.Repository, dashboard DashboardService, logger *zap.Logger) ApplicationService {
	return &applicationService{
		repo:       repo,
		dashboard:  dashboard,
		agentScope: cfg.Access.AgentScope,
		logger:     logger,
	}
}

// ────────────────────── List ──────────────────────

func (s *applicationService) List(ctx context.Context, actor model.Actor, req *dto.ApplicationListRequest) ([]dto.ApplicationResponse, int64, error) {
	filter, err := visibilityFilter(actor, s.agentScope)
	if err != nil {
		return nil, 0, err
	}
	filter.Status = model.ApplicationStatus(req.Status)
	filter.Keyword = req.Keyword

	apps, total, err := s.repo.Application.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询申请列表失败", zap.String("actor", actor.ID), zap.Error(err))
		return nil, 0, pkgerrors.Backend("application.list", err)
	}

	result, err := s.toResponses(ctx, apps)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// ListAll 可见范围内的全部申请（导出使用）
func (s *applicationService) ListAll(ctx context.Context, actor model.Actor) ([]dto.ApplicationResponse, error) {
	filter, err := visibilityFilter(actor, s.agentScope)
	if err != nil {
		return nil, err
	}
	apps, _, err := s.repo.Application.List(ctx, filter, 0, 0)
	if err != nil {
		s.logger.Error("查询申请列表失败", zap.String("actor", actor.ID), zap.Error(err))
		return nil, pkgerrors.Backend("application.list", err)
	}
	return s.toResponses(ctx, apps)
}

// ────────────────────── Get ──────────────────────

func (s *applicationService) Get(ctx context.Context, actor model.Actor, id string) (*dto.ApplicationResponse, error) {
	app, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, app)
}

// ────────────────────── Create ──────────────────────

func (s *applicationService) Create(ctx context.Context, actor model.Actor, req *dto.CreateApplicationRequest) (*dto.ApplicationResponse, error) {
	if !actor.IsAdmin() && !actor.IsAgent() {
		return nil, ErrRoleNotPermitted
	}

	app, err := buildApplication(req)
	if err != nil {
		return nil, err
	}
	if actor.IsAgent() {
		agentID := actor.ID
		app.AgentID = &agentID
	}
	if err := s.checkCounselor(ctx, app.CounselorID); err != nil {
		return nil, err
	}

	if err := s.repo.Application.Create(ctx, app); err != nil {
		s.logger.Error("创建申请失败", zap.String("actor", actor.ID), zap.Error(err))
		return nil, pkgerrors.Backend("application.create", err)
	}

	s.logger.Info("创建申请",
		zap.String("application_id", app.ApplicationID),
		zap.String("by", actor.ID))
	s.dashboard.Invalidate(ctx)

	return s.toResponse(ctx, app)
}

// buildApplication 校验新建请求并填充默认值
func buildApplication(req *dto.CreateApplicationRequest) (*model.Application, error) {
	name := strings.TrimSpace(req.ClientName)
	if name == "" {
		return nil, pkgerrors.Validation("client_name 不能为空")
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil, pkgerrors.Validation("phone_number 不能为空")
	}
	planned := cleanList(req.PlannedCourses)
	if len(planned) == 0 {
		return nil, pkgerrors.Validation("planned_courses 至少填写一项")
	}
	locations := cleanList(req.PreferredLocations)
	if len(locations) == 0 {
		return nil, pkgerrors.Validation("preferred_locations 至少填写一项")
	}
	course, ok := model.ParseEducationLevel(req.CompletedCourse)
	if !ok {
		return nil, pkgerrors.Validation("completed_course 取值无效: %q", req.CompletedCourse)
	}

	app := &model.Application{
		ClientName:         name,
		PhoneNumber:        phone,
		CompletedCourse:    course,
		PlannedCourses:     planned,
		PreferredLocations: locations,
		PreferredColleges:  cleanList(req.PreferredColleges),
		ApplicationStatus:  model.InitialStatus,
	}
	if req.ClientEmail != nil {
		if email := strings.TrimSpace(*req.ClientEmail); email != "" {
			if err := checkEmail(email); err != nil {
				return nil, err
			}
			app.ClientEmail = &email
		}
	}
	if req.CounselorID != nil {
		app.CounselorID = repository.NormalizeCounselorID(*req.CounselorID)
	}
	return app, nil
}

// ────────────────────── Update ──────────────────────

func (s *applicationService) Update(ctx context.Context, actor model.Actor, id string, req *dto.UpdateApplicationRequest) (*dto.ApplicationResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrRoleNotPermitted
	}

	patch, err := buildPatch(req)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if patch.CounselorID != nil {
		if err := s.checkCounselor(ctx, repository.NormalizeCounselorID(*patch.CounselorID)); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Application.ApplyPatch(ctx, id, patch); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("更新申请失败", zap.String("application_id", id), zap.Error(err))
		}
		return nil, mapRepoErr("application.update", err, ErrApplicationNotFound)
	}

	s.logger.Info("更新申请", zap.String("application_id", id), zap.String("by", actor.ID))
	s.dashboard.Invalidate(ctx)

	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, app)
}

// emailValidate 与请求绑定使用同一条 email 规则，导入行也走这里
var emailValidate = validator.New()

func checkEmail(v string) error {
	if err := emailValidate.Var(v, "email"); err != nil {
		return pkgerrors.Validation("client_email 格式无效: %q", v)
	}
	return nil
}

// buildPatch 校验并转换部分更新请求
func buildPatch(req *dto.UpdateApplicationRequest) (*repository.ApplicationPatch, error) {
	patch := &repository.ApplicationPatch{
		CounselorID: req.CounselorID,
	}
	if req.ClientEmail != nil {
		v := strings.TrimSpace(*req.ClientEmail)
		if v != "" {
			if err := checkEmail(v); err != nil {
				return nil, err
			}
		}
		patch.ClientEmail = &v
	}
	if req.ClientName != nil {
		v := strings.TrimSpace(*req.ClientName)
		if v == "" {
			return nil, pkgerrors.Validation("client_name 不能为空")
		}
		patch.ClientName = &v
	}
	if req.PhoneNumber != nil {
		v := strings.TrimSpace(*req.PhoneNumber)
		if v == "" {
			return nil, pkgerrors.Validation("phone_number 不能为空")
		}
		patch.PhoneNumber = &v
	}
	if req.CompletedCourse != nil {
		lvl, ok := model.ParseEducationLevel(*req.CompletedCourse)
		if !ok {
			return nil, pkgerrors.Validation("completed_course 取值无效: %q", *req.CompletedCourse)
		}
		patch.CompletedCourse = &lvl
	}
	if req.PlannedCourses != nil {
		v := []string(cleanList(*req.PlannedCourses))
		if len(v) == 0 {
			return nil, pkgerrors.Validation("planned_courses 至少填写一项")
		}
		patch.PlannedCourses = &v
	}
	if req.PreferredLocations != nil {
		v := []string(cleanList(*req.PreferredLocations))
		if len(v) == 0 {
			return nil, pkgerrors.Validation("preferred_locations 至少填写一项")
		}
		patch.PreferredLocations = &v
	}
	if req.PreferredColleges != nil {
		v := []string(cleanList(*req.PreferredColleges))
		patch.PreferredColleges = &v
	}
	if req.ApplicationStatus != nil {
		st, ok := model.ParseStatus(*req.ApplicationStatus)
		if !ok {
			return nil, invalidStatus(*req.ApplicationStatus)
		}
		patch.ApplicationStatus = &st
	}
	return patch, nil
}

// ────────────────────── SetStatus ──────────────────────

// SetStatus 任意状态之间均可切换；顾问只能操作分配给自己的申请
func (s *applicationService) SetStatus(ctx context.Context, actor model.Actor, id, status string) (*dto.ApplicationResponse, error) {
	if !actor.IsAdmin() && !actor.IsCounselor() {
		return nil, ErrRoleNotPermitted
	}
	st, ok := model.ParseStatus(status)
	if !ok {
		return nil, invalidStatus(status)
	}

	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsCounselor() && (app.CounselorID == nil || *app.CounselorID != actor.ID) {
		return nil, ErrNotAssigned
	}

	if err := s.repo.Application.UpdateStatus(ctx, id, st); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("更新申请状态失败", zap.String("application_id", id), zap.Error(err))
		}
		return nil, mapRepoErr("application.set_status", err, ErrApplicationNotFound)
	}

	s.logger.Info("更新申请状态",
		zap.String("application_id", id),
		zap.String("from", string(app.ApplicationStatus)),
		zap.String("to", string(st)),
		zap.String("by", actor.ID))
	s.dashboard.Invalidate(ctx)

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, updated)
}

// ────────────────────── Notes ──────────────────────

// AppendNote 备注写入子表，序号由数据库分配，不存在读改写竞争
func (s *applicationService) AppendNote(ctx context.Context, actor model.Actor, id, text string) (*dto.NoteResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.Validation("note_text 不能为空")
	}
	if _, err := s.loadVisible(ctx, actor, id); err != nil {
		return nil, err
	}

	authorID := actor.ID
	note := &model.ApplicationNote{
		ApplicationID: id,
		AuthorID:      &authorID,
		AuthorName:    s.authorName(ctx, actor.ID),
		NoteText:      text,
	}

	// 写备注与刷新 updated_at 放在同一事务
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, pkgerrors.Backend("application.append_note", err)
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

	if err := txRepo.Note.Create(ctx, note); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("写入备注失败", zap.String("application_id", id), zap.Error(err))
		return nil, pkgerrors.Backend("application.append_note", err)
	}
	if err := txRepo.Application.Touch(ctx, id); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("刷新申请更新时间失败", zap.String("application_id", id), zap.Error(err))
		}
		return nil, mapRepoErr("application.append_note", err, ErrApplicationNotFound)
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, pkgerrors.Backend("application.append_note", err)
		}
	}

	resp := toNoteResponse(note)
	return &resp, nil
}

func (s *applicationService) ListNotes(ctx context.Context, actor model.Actor, id string) ([]dto.NoteResponse, error) {
	if _, err := s.loadVisible(ctx, actor, id); err != nil {
		return nil, err
	}
	notes, err := s.repo.Note.ListByApplication(ctx, id)
	if err != nil {
		s.logger.Error("查询备注失败", zap.String("application_id", id), zap.Error(err))
		return nil, pkgerrors.Backend("application.list_notes", err)
	}
	result := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		result = append(result, toNoteResponse(&notes[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *applicationService) load(ctx context.Context, id string) (*model.Application, error) {
	app, err := s.repo.Application.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询申请失败", zap.String("application_id", id), zap.Error(err))
		}
		return nil, mapRepoErr("application.get", err, ErrApplicationNotFound)
	}
	return app, nil
}

func (s *applicationService) loadVisible(ctx context.Context, actor model.Actor, id string) (*model.Application, error) {
	if !actor.Role.Valid() {
		return nil, ErrRoleNotPermitted
	}
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, s.agentScope, app) {
		return nil, ErrNotVisible
	}
	return app, nil
}

// checkCounselor 分配的顾问必须存在且角色为 counselor；nil 表示不分配
func (s *applicationService) checkCounselor(ctx context.Context, counselorID *string) error {
	if counselorID == nil {
		return nil
	}
	profile, err := s.repo.Profile.GetByID(ctx, *counselorID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询顾问失败", zap.String("counselor_id", *counselorID), zap.Error(err))
		}
		return mapRepoErr("application.check_counselor", err, ErrCounselorNotFound)
	}
	if profile.Role != model.RoleCounselor {
		return ErrNotCounselor
	}
	return nil
}

// authorName 备注作者显示名；查询失败不阻断写入
func (s *applicationService) authorName(ctx context.Context, userID string) string {
	profile, err := s.repo.Profile.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("查询备注作者失败，使用占位名", zap.String("user_id", userID), zap.Error(err))
		return model.DefaultUsername
	}
	return profile.DisplayName()
}

// counselorNames 一次批量查询解析顾问姓名
// 批量查询失败、ID 不存在或用户名为空时均降级为占位值，不影响整批结果
func (s *applicationService) counselorNames(ctx context.Context, apps []model.Application) map[string]string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for i := range apps {
		if id := apps[i].CounselorID; id != nil {
			if _, ok := seen[*id]; !ok {
				seen[*id] = struct{}{}
				ids = append(ids, *id)
			}
		}
	}

	names := make(map[string]string, len(ids))
	for _, id := range ids {
		names[id] = UnknownCounselor
	}
	if len(ids) == 0 {
		return names
	}

	profiles, err := s.repo.Profile.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("批量查询顾问姓名失败，使用占位名", zap.Int("count", len(ids)), zap.Error(err))
		return names
	}
	for i := range profiles {
		if u := profiles[i].Username; u != nil && strings.TrimSpace(*u) != "" {
			names[profiles[i].ID] = *u
		}
	}
	return names
}

func (s *applicationService) toResponse(ctx context.Context, app *model.Application) (*dto.ApplicationResponse, error) {
	list, err := s.toResponses(ctx, []model.Application{*app})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// toResponses 批量解析顾问姓名与备注后组装响应
func (s *applicationService) toResponses(ctx context.Context, apps []model.Application) ([]dto.ApplicationResponse, error) {
	result := make([]dto.ApplicationResponse, 0, len(apps))
	if len(apps) == 0 {
		return result, nil
	}

	names := s.counselorNames(ctx, apps)

	ids := make([]string, 0, len(apps))
	for i := range apps {
		ids = append(ids, apps[i].ApplicationID)
	}
	notes, err := s.repo.Note.ListByApplications(ctx, ids)
	if err != nil {
		s.logger.Error("批量查询备注失败", zap.Error(err))
		return nil, pkgerrors.Backend("application.list_notes", err)
	}
	notesByApp := make(map[string][]dto.NoteResponse, len(apps))
	for i := range notes {
		n := &notes[i]
		notesByApp[n.ApplicationID] = append(notesByApp[n.ApplicationID], toNoteResponse(n))
	}

	for i := range apps {
		app := &apps[i]
		resp := dto.ApplicationResponse{
			ApplicationID:      app.ApplicationID,
			ClientName:         app.ClientName,
			ClientEmail:        app.ClientEmail,
			PhoneNumber:        app.PhoneNumber,
			CompletedCourse:    string(app.CompletedCourse),
			PlannedCourses:     nonNil(app.PlannedCourses),
			PreferredLocations: nonNil(app.PreferredLocations),
			PreferredColleges:  nonNil(app.PreferredColleges),
			CounselorID:        app.CounselorID,
			AgentID:            app.AgentID,
			ApplicationStatus:  string(app.ApplicationStatus),
			Notes:              notesByApp[app.ApplicationID],
			CreatedAt:          app.CreatedAt.Format(time.RFC3339),
			UpdatedAt:          app.UpdatedAt.Format(time.RFC3339),
		}
		if resp.Notes == nil {
			resp.Notes = []dto.NoteResponse{}
		}
		if app.CounselorID != nil {
			name := names[*app.CounselorID]
			resp.CounselorName = &name
		}
		result = append(result, resp)
	}
	return result, nil
}

func toNoteResponse(n *model.ApplicationNote) dto.NoteResponse {
	return dto.NoteResponse{
		ID:         n.NoteID,
		Text:       n.NoteText,
		CreatedAt:  n.CreatedAt.Format(time.RFC3339Nano),
		AuthorID:   n.AuthorID,
		AuthorName: n.AuthorName,
	}
}

// cleanList 去除首尾空白并丢弃空项
func cleanList(items []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(items))
	for _, item := range items {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nonNil(v pq.StringArray) []string {
	if v == nil {
		return []string{}
	}
	return []string(v)
}

// [自证通过] internal/service/application_service.go
