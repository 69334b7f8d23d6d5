package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
)

// ErrExportGenerateFail 生成 Excel 失败
var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 前八列与导入模板一致，导出文件可直接再次导入。
type ExportService interface {
	ExportApplications(ctx context.Context, actor model.Actor) (*bytes.Buffer, string, error)
}

type exportService struct {
	apps   ApplicationService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(apps ApplicationService, logger *zap.Logger) ExportService {
	return &exportService{apps: apps, logger: logger}
}

// exportExtraColumns 导入模板之外的只读列
var exportExtraColumns = []string{"application_id", "application_status", "counselor_name", "created_at", "updated_at"}

func (s *exportService) ExportApplications(ctx context.Context, actor model.Actor) (*bytes.Buffer, string, error) {
	if !actor.IsAdmin() {
		return nil, "", ErrRoleNotPermitted
	}

	apps, err := s.apps.ListAll(ctx, actor)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Applications"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	header := append(append([]string{}, importColumns...), exportExtraColumns...)
	for i, h := range header {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(header)-1), 1), headerStyle)
	f.SetColWidth(sheetName, "A", colName(len(header)-1), 20)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for r, app := range apps {
		row := r + 2
		values := []interface{}{
			app.ClientName,
			derefString(app.ClientEmail),
			app.PhoneNumber,
			app.CompletedCourse,
			strings.Join(app.PlannedCourses, ", "),
			strings.Join(app.PreferredLocations, ", "),
			strings.Join(app.PreferredColleges, ", "),
			derefString(app.CounselorID),
			app.ApplicationID,
			app.ApplicationStatus,
			derefString(app.CounselorName),
			app.CreatedAt,
			app.UpdatedAt,
		}
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	s.logger.Info("导出申请", zap.String("by", actor.ID), zap.Int("rows", len(apps)))
	filename := fmt.Sprintf("applications_%s.xlsx", time.Now().UTC().Format("20060102"))
	return buf, filename, nil
}

// colName 0 起始的列号转列名（0 → A）
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

// cell 组合单元格坐标
func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
