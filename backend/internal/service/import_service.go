package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/dto"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	pkgerrors "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/errors"
)

// 导入文件列名
const (
	colClientName         = "client_name"
	colClientEmail        = "client_email"
	colPhoneNumber        = "phone_number"
	colCompletedCourse    = "completed_course"
	colPlannedCourses     = "planned_courses"
	colPreferredLocations = "preferred_locations"
	colPreferredColleges  = "preferred_colleges"
	colCounselorID        = "counselor_id"
)

// importColumns 导入 / 导出共用的列顺序
var importColumns = []string{
	colClientName, colClientEmail, colPhoneNumber, colCompletedCourse,
	colPlannedCourses, colPreferredLocations, colPreferredColleges, colCounselorID,
}

// requiredColumns 表头必须包含的列；单元格是否为空在逐行创建时校验
var requiredColumns = []string{colClientName, colPhoneNumber, colPlannedCourses, colPreferredLocations}

// ImportRow 解析后的单行数据；Row 从 1 开始，不含表头
type ImportRow struct {
	Row     int
	Request dto.CreateApplicationRequest
}

// ImportService 批量导入业务接口
type ImportService interface {
	ParseImportFile(filename string, reader io.Reader) ([]ImportRow, error)
	Import(ctx context.Context, actor model.Actor, rows []ImportRow) (*dto.ImportApplicationResponse, error)
}

type importService struct {
	apps    ApplicationService
	maxRows int
	logger  *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(cfg *config.Config, apps ApplicationService, logger *zap.Logger) ImportService {
	return &importService{apps: apps, maxRows: cfg.Import.MaxRows, logger: logger}
}

// ────────────────────── ParseImportFile ──────────────────────

// ParseImportFile 按扩展名解析 .csv / .xlsx，返回逐行数据
func (s *importService) ParseImportFile(filename string, reader io.Reader) ([]ImportRow, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(reader)
	case ".xlsx":
		records, err = readXLSX(reader)
	default:
		return nil, ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return nil, pkgerrors.Validation("文件中没有可导入的数据")
	}

	colIndex := parseHeaderIndex(records[0])
	var missing []string
	for _, col := range requiredColumns {
		if colIndex[col] < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrImportMissingField, strings.Join(missing, ", "))
	}

	var rows []ImportRow
	for i := 1; i < len(records); i++ {
		record := records[i]
		if isBlankRecord(record) {
			continue
		}
		get := func(col string) string {
			if idx := colIndex[col]; idx >= 0 && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		req := dto.CreateApplicationRequest{
			ClientName:         get(colClientName),
			PhoneNumber:        get(colPhoneNumber),
			CompletedCourse:    get(colCompletedCourse),
			PlannedCourses:     parseListCell(get(colPlannedCourses)),
			PreferredLocations: parseListCell(get(colPreferredLocations)),
			PreferredColleges:  parseListCell(get(colPreferredColleges)),
		}
		if v := get(colClientEmail); v != "" {
			req.ClientEmail = &v
		}
		if v := get(colCounselorID); v != "" {
			req.CounselorID = &v
		}
		rows = append(rows, ImportRow{Row: i, Request: req})
	}

	if len(rows) == 0 {
		return nil, pkgerrors.Validation("文件中没有可导入的数据")
	}
	if len(rows) > s.maxRows {
		return nil, fmt.Errorf("%w: %d > %d", ErrImportTooManyRows, len(rows), s.maxRows)
	}
	return rows, nil
}

func readCSV(reader io.Reader) ([][]string, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, pkgerrors.Validation("无法解析 CSV 文件: %v", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func readXLSX(reader io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, pkgerrors.Validation("无法解析 Excel 文件: %v", err)
	}
	defer f.Close()

	records, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, pkgerrors.Validation("读取工作表失败: %v", err)
	}
	return records, nil
}

// parseHeaderIndex 解析表头，返回列名 -> 列索引映射（支持任意列序）
func parseHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(importColumns))
	for _, col := range importColumns {
		idx[col] = -1
	}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.ReplaceAll(name, " ", "_")
		if _, ok := idx[name]; ok && idx[name] < 0 {
			idx[name] = i
		}
	}
	return idx
}

// parseListCell 列表单元格：JSON 数组或逗号分隔，去空白并丢弃空项
func parseListCell(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if strings.HasPrefix(v, "[") {
		var items []string
		if err := json.Unmarshal([]byte(v), &items); err == nil {
			return []string(cleanList(items))
		}
	}
	return []string(cleanList(strings.Split(v, ",")))
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ────────────────────── Import ──────────────────────

// Import 逐行顺序创建，单行失败不影响其他行，已成功的行不回滚
func (s *importService) Import(ctx context.Context, actor model.Actor, rows []ImportRow) (*dto.ImportApplicationResponse, error) {
	if !actor.IsAdmin() && !actor.IsAgent() {
		return nil, ErrRoleNotPermitted
	}

	resp := &dto.ImportApplicationResponse{Total: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportRowError{
				Row: row.Row, Reason: fmt.Sprintf("第 %d 行: 导入已中止: %v", row.Row, err),
			})
			continue
		}

		req := row.Request
		if _, err := s.apps.Create(ctx, actor, &req); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportRowError{
				Row: row.Row, Reason: fmt.Sprintf("第 %d 行: %v", row.Row, err),
			})
			s.logger.Warn("导入行失败", zap.Int("row", row.Row), zap.Error(err))
			continue
		}
		resp.Success++
	}

	s.logger.Info("批量导入申请完成",
		zap.String("by", actor.ID),
		zap.Int("total", resp.Total),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed))
	return resp, nil
}
