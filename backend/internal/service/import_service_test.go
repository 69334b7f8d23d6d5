package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	pkgerrors "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/errors"
)

const sampleCSV = `client_name,client_email,phone_number,completed_course,planned_courses,preferred_locations,preferred_colleges,counselor_id
Jane Doe,jane@example.com,+15550001,science,"B.Tech, MBA",Bangalore,,none
John Roe,,,commerce,BBA,Kochi,,
Ann Lee,,+15550003,arts,"[""BA"",""MA""]","[""Delhi""]","[""St. Stephen's""]",
`

func TestImportService_ParseCSV(t *testing.T) {
	env := newTestEnv(nil)
	rows, err := env.svc.Import.ParseImportFile("leads.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 1, rows[0].Row)
	assert.Equal(t, []string{"B.Tech", "MBA"}, rows[0].Request.PlannedCourses)
	require.NotNil(t, rows[0].Request.ClientEmail)
	assert.Equal(t, "jane@example.com", *rows[0].Request.ClientEmail)

	assert.Equal(t, 2, rows[1].Row)
	assert.Empty(t, rows[1].Request.PhoneNumber)
	assert.Nil(t, rows[1].Request.ClientEmail)

	assert.Equal(t, []string{"BA", "MA"}, rows[2].Request.PlannedCourses)
	assert.Equal(t, []string{"St. Stephen's"}, rows[2].Request.PreferredColleges)
}

func TestImportService_ImportReportsPerRow(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()

	rows, err := env.svc.Import.ParseImportFile("leads.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	resp, err := env.svc.Import.Import(ctx, agentActor, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Success)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 2, resp.Errors[0].Row)
	assert.Contains(t, resp.Errors[0].Reason, "第 2 行")
	assert.Contains(t, resp.Errors[0].Reason, "phone_number")

	// 成功的行已经落库，不因失败行回滚
	assert.Len(t, env.apps.apps, 2)
	for _, app := range env.apps.apps {
		require.NotNil(t, app.AgentID)
		assert.Equal(t, agentActor.ID, *app.AgentID)
		assert.Nil(t, app.CounselorID, "counselor_id=none 应落库为 NULL")
	}
}

func TestImportService_RejectsMalformedEmail(t *testing.T) {
	env := newTestEnv(nil)
	csv := `client_name,client_email,phone_number,completed_course,planned_courses,preferred_locations
Jane Doe,not-an-email,+15550001,science,MBA,Bangalore
John Roe, john@example.com ,+15550002,commerce,BBA,Kochi
`
	rows, err := env.svc.Import.ParseImportFile("leads.csv", strings.NewReader(csv))
	require.NoError(t, err)

	resp, err := env.svc.Import.Import(context.Background(), adminActor, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Success)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Row)
	assert.Contains(t, resp.Errors[0].Reason, "client_email")

	require.Len(t, env.apps.apps, 1)
	for _, app := range env.apps.apps {
		require.NotNil(t, app.ClientEmail)
		assert.Equal(t, "john@example.com", *app.ClientEmail)
	}
}

func TestImportService_ForbiddenForCounselor(t *testing.T) {
	env := newTestEnv(nil)
	rows, err := env.svc.Import.ParseImportFile("leads.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	_, err = env.svc.Import.Import(context.Background(), counselorActor, rows)
	assert.ErrorIs(t, err, pkgerrors.ErrForbidden)
	assert.Empty(t, env.apps.apps)
}

func TestImportService_BlankRowsKeepNumbering(t *testing.T) {
	env := newTestEnv(nil)
	data := "client_name,phone_number,planned_courses,preferred_locations\n" +
		"A,1,x,y\n" +
		",,,\n" +
		"C,,x,y\n"
	rows, err := env.svc.Import.ParseImportFile("leads.csv", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[1].Row, "行号应与文件中的位置一致")
}

func TestImportService_ParseErrors(t *testing.T) {
	env := newTestEnv(func(cfg *config.Config) { cfg.Import.MaxRows = 2 })

	_, err := env.svc.Import.ParseImportFile("leads.txt", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = env.svc.Import.ParseImportFile("leads.csv", strings.NewReader("client_name,phone_number\nA,1\n"))
	assert.ErrorIs(t, err, ErrImportMissingField)
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	assert.Contains(t, err.Error(), "planned_courses")

	_, err = env.svc.Import.ParseImportFile("leads.csv", strings.NewReader("client_name,phone_number,planned_courses,preferred_locations\n"))
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)

	_, err = env.svc.Import.ParseImportFile("leads.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrImportTooManyRows)
}

func TestImportService_ParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	header := []interface{}{"Client Name", "Phone Number", "Planned Courses", "Preferred Locations"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i := 0; i < 3; i++ {
		row := []interface{}{fmt.Sprintf("Client %d", i), "+1555", "MBA", "Pune, Mumbai"}
		require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row))
	}
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))

	env := newTestEnv(nil)
	rows, err := env.svc.Import.ParseImportFile("LEADS.XLSX", buf)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Client 2", rows[2].Request.ClientName)
	assert.Equal(t, []string{"Pune", "Mumbai"}, rows[0].Request.PreferredLocations)
}

func TestParseListCell(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , ,b ", []string{"a", "b"}},
		{`["x, y", "z"]`, []string{"x, y", "z"}},
		{`[broken`, []string{"[broken"}},
	}
	for _, tc := range cases {
		got := parseListCell(tc.in)
		if len(tc.want) == 0 {
			assert.Empty(t, got, "输入 %q", tc.in)
			continue
		}
		assert.Equal(t, tc.want, got, "输入 %q", tc.in)
	}
}

// ── Export ──

func TestExportService_RoundTrip(t *testing.T) {
	env := newTestEnv(nil)
	env.profiles.add("c1", model.RoleCounselor, "Alice")
	env.seedApp("Jane", "c1", "", model.StatusProcessing)
	env.seedApp("John", "", "", model.StatusStarted)
	ctx := context.Background()

	buf, filename, err := env.svc.Export.ExportApplications(ctx, adminActor)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	records, err := f.GetRows("Applications")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "client_name", records[0][0])

	// 导出文件可再次导入
	rows, err := env.svc.Import.ParseImportFile(filename, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExportService_AdminOnly(t *testing.T) {
	env := newTestEnv(nil)
	_, _, err := env.svc.Export.ExportApplications(context.Background(), agentActor)
	assert.ErrorIs(t, err, pkgerrors.ErrForbidden)
}
