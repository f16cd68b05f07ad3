package parsers

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/username/cashflowrisk/backend/src/models"
)

func buildWorkbook(t *testing.T, fill func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	fill(f)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbookTypedCells(t *testing.T) {
	data := buildWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetName("Sheet1", "Plan"))
		require.NoError(t, f.SetCellValue("Plan", "A1", "Rent"))
		require.NoError(t, f.SetCellValue("Plan", "B1", 1500.5))
		require.NoError(t, f.SetCellValue("Plan", "C1", time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, f.SetCellValue("Plan", "D1", "2026"))
		_, err := f.NewSheet("Second")
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Second", "B2", "x"))
	})

	wb, err := ReadWorkbook("plan.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Plan", "Second"}, wb.SheetNames())

	plan, ok := wb.Sheet("Plan")
	require.True(t, ok)
	assert.Equal(t, models.CellText, plan.At(0, 0).Kind)
	assert.Equal(t, "Rent", plan.At(0, 0).Text)

	assert.Equal(t, models.CellNumber, plan.At(0, 1).Kind)
	assert.Equal(t, 1500.5, plan.At(0, 1).Number)

	require.Equal(t, models.CellDate, plan.At(0, 2).Kind)
	assert.Equal(t, civil.Date{Year: 2026, Month: 1, Day: 31}, plan.At(0, 2).Date)

	// Numeric-looking strings stay text.
	assert.Equal(t, models.CellText, plan.At(0, 3).Kind)

	second, ok := wb.Sheet("Second")
	require.True(t, ok)
	assert.True(t, second.At(0, 0).IsBlank())
	assert.True(t, second.At(1, 0).IsBlank())
	assert.Equal(t, "x", second.At(1, 1).Text)
}

func TestReadWorkbookCustomDateFormat(t *testing.T) {
	data := buildWorkbook(t, func(f *excelize.File) {
		fmtCode := "dd.mm.yyyy"
		style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &fmtCode})
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", "A1", 46053))
		require.NoError(t, f.SetCellStyle("Sheet1", "A1", "A1", style))
		require.NoError(t, f.SetCellValue("Sheet1", "B1", 46053))
	})

	wb, err := ReadWorkbook("plan.xlsx", data)
	require.NoError(t, err)
	sheet, ok := wb.Sheet("Sheet1")
	require.True(t, ok)

	require.Equal(t, models.CellDate, sheet.At(0, 0).Kind)
	assert.Equal(t, civil.Date{Year: 2026, Month: 1, Day: 31}, sheet.At(0, 0).Date)
	assert.Equal(t, models.CellNumber, sheet.At(0, 1).Kind)
}

func TestReadWorkbookRejectsGarbage(t *testing.T) {
	_, err := ReadWorkbook("broken.xlsx", []byte("PK\x03\x04 definitely not a zip"))
	assert.ErrorIs(t, err, models.ErrUnrecognizedFormat)
}

func TestIsDateNumFmt(t *testing.T) {
	assert.True(t, IsDateNumFmt("dd.mm.yyyy"))
	assert.True(t, IsDateNumFmt("[$-419]mmmm yyyy;@"))
	assert.False(t, IsDateNumFmt(`#,##0.00 "days"`))
	assert.False(t, IsDateNumFmt("0.00%"))
	assert.True(t, isBuiltInDateNumFmt(14))
	assert.False(t, isBuiltInDateNumFmt(20))
	assert.False(t, isBuiltInDateNumFmt(4))
}

func TestAssignSheetsByName(t *testing.T) {
	names := SheetNames{
		WithPartners:         "Версия с фин займ партнеров",
		NoPartners:           "Версия без фин займ партнеров",
		Payables:             "Сводная",
		ScenarioWithPartners: models.ScenarioWithPartners,
		ScenarioNoPartners:   models.ScenarioNoPartners,
	}

	plan := AssignSheets([]string{"Notes", " Версия без фин займ партнеров ", "Версия с фин займ партнеров"}, names)
	assert.Equal(t, SelectionByName, plan.Selection)
	require.Len(t, plan.Assignments, 2)
	assert.Equal(t, "Версия с фин займ партнеров", plan.Assignments[0].Sheet)
	assert.Equal(t, models.ScenarioWithPartners, plan.Assignments[0].Scenario)
	assert.Equal(t, " Версия без фин займ партнеров ", plan.Assignments[1].Sheet)
	assert.Equal(t, models.ScenarioNoPartners, plan.Assignments[1].Scenario)
	assert.Equal(t, []string{"Сводная"}, plan.Missing)
}

func TestAssignSheetsPositional(t *testing.T) {
	names := SheetNames{WithPartners: "A", NoPartners: "B", Payables: "C"}

	plan := AssignSheets([]string{"Cashflow 2026", "Debts", "Extra"}, names)
	assert.Equal(t, SelectionPositional, plan.Selection)
	require.Len(t, plan.Assignments, 2)
	assert.Equal(t, SheetAssignment{Sheet: "Cashflow 2026", Role: RoleCashflow, Scenario: "Cashflow 2026"}, plan.Assignments[0])
	assert.Equal(t, SheetAssignment{Sheet: "Debts", Role: RolePayables}, plan.Assignments[1])
	assert.Empty(t, plan.Missing)

	plan = AssignSheets([]string{"Only"}, names)
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, []string{"sheet 2"}, plan.Missing)
}
