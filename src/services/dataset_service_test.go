package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/username/cashflowrisk/backend/src/config"
	"github.com/username/cashflowrisk/backend/src/locator"
	"github.com/username/cashflowrisk/backend/src/models"
	"github.com/username/cashflowrisk/backend/src/processors"
)

var (
	jan = civil.Date{Year: 2026, Month: 1, Day: 31}
	feb = civil.Date{Year: 2026, Month: 2, Day: 28}
)

const specCSV = "Item,Date,Scenario,Amount\n" +
	"Rent,2026-01-31,No Partners,2 900 000 000,00\n" +
	"Tax,2026-01-31,No Partners,3 200 000 000,00\n"

func newTestService(t *testing.T, dir string, tweak func(cfg *config.AppConfig)) (DatasetService, *cache.Cache) {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = dir
	if tweak != nil {
		tweak(cfg)
	}
	loc := locator.New(locator.Options{
		Dir:       cfg.DataDir,
		Recursive: cfg.SourceRecursive,
		Keywords:  cfg.SourceKeywords,
		CSVName:   cfg.CSVFallbackName,
	})
	reportCache := cache.New(cache.NoExpiration, time.Minute)
	svc := NewDatasetService(
		cfg,
		loc,
		processors.NewCashflowProcessor(processors.CashflowOptions{HeaderRows: cfg.HeaderRows, SentinelRow: cfg.SentinelRow}),
		processors.NewPayablesProcessor(),
		reportCache,
	)
	return svc, reportCache
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// writeWorkbook creates a workbook with a "No Partners" cashflow sheet in the
// sentinel-row layout, plus a payables sheet when withPayables is set.
func writeWorkbook(t *testing.T, path string, withPayables bool) {
	t.Helper()
	cfg := config.Defaults()
	f := excelize.NewFile()
	defer f.Close()

	sheet := cfg.SheetNoPartners
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	cells := map[string]interface{}{
		"A1": "Потребность в финансировании",
		"B3": "Статья",
		"C3": "Январь",
		"D3": "Февраль",
		"C4": time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		"D4": time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		"B5": "Налоги",
		"C5": 3200000000,
		"D5": "1 500 000,50",
		"B6": "Аренда",
		"C6": -2900000000,
		"D6": "нет данных",
	}
	for ref, v := range cells {
		require.NoError(t, f.SetCellValue(sheet, ref, v))
	}

	if withPayables {
		_, err := f.NewSheet(cfg.SheetPayables)
		require.NoError(t, err)
		rows := [][]interface{}{
			{"Расходы", "Сумма", "Оплаченная сумма", "Уровень срочности", "Крайний срок", "К оплате"},
			{"Налог на прибыль", 1000, 200, "CRITICAL", time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC), 800},
			{"Электроэнергия", 500, 0, "MONTH END", nil, "500"},
		}
		for i, row := range rows {
			ref, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(cfg.SheetPayables, ref, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestLoadCSVEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cashflow.csv"), []byte(specCSV))
	svc, _ := newTestService(t, dir, nil)

	ds, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6100000000.0, ds.ValueAt(jan, models.ScenarioNoPartners))
	assert.Equal(t, 0.0, ds.ValueAt(feb, models.ScenarioNoPartners))
	assert.Len(t, ds.Cashflow(), 2)
	assert.NotNil(t, ds.Payables())
	assert.Empty(t, ds.Payables())

	report := ds.Report()
	require.NotNil(t, report.UsedAttempt)
	assert.Equal(t, ",", report.UsedAttempt.Delimiter)
	assert.Len(t, report.Attempts, 4)
	assert.Equal(t, models.SourceCSV, report.Source.Kind)
	assert.Equal(t, 2, report.CashflowRecords)
	assert.Len(t, report.Fingerprint, 64)

	peak, ok := ds.ScenarioPeak(models.ScenarioNoPartners)
	require.True(t, ok)
	assert.Equal(t, models.PeakRecord{Date: jan, Amount: 6100000000}, peak)

	_, ok = ds.ScenarioPeak(models.ScenarioWithPartners)
	assert.False(t, ok)
}

func TestLoadWorkbookWithoutPayablesSheet(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "upm_2026.xlsx"), false)
	svc, _ := newTestService(t, dir, nil)

	ds, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.PayableRecord{}, ds.Payables())
	assert.Equal(t, 3200000000.0+2900000000.0, ds.ValueAt(jan, models.ScenarioNoPartners))
	assert.Equal(t, 1500000.5, ds.ValueAt(feb, models.ScenarioNoPartners))

	report := ds.Report()
	assert.Equal(t, "by-name", report.SheetSelection)
	assert.ElementsMatch(t, []string{config.Defaults().SheetWithPartners, config.Defaults().SheetPayables}, report.EmptySheets)
	require.Len(t, report.Sheets, 1)
	assert.Equal(t, processors.StrategySentinelRow, report.Sheets[0].Strategy)
	assert.Equal(t, 1, report.DroppedCashflow)

	for _, rec := range ds.Cashflow() {
		assert.Equal(t, models.ScenarioNoPartners, rec.Scenario)
		assert.NotEmpty(t, rec.Category)
	}
}

func TestLoadWorkbookWithPayables(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "upm_2026.xlsx"), true)
	svc, _ := newTestService(t, dir, nil)

	ds, err := svc.Load(context.Background())
	require.NoError(t, err)

	payables := ds.Payables()
	require.Len(t, payables, 2)
	assert.Equal(t, "Налог на прибыль", payables[0].Expense)
	require.NotNil(t, payables[0].DueDate)
	assert.Equal(t, civil.Date{Year: 2026, Month: 1, Day: 25}, *payables[0].DueDate)
	assert.Nil(t, payables[1].DueDate)

	assert.Equal(t, []string{"CRITICAL", "MONTH END"}, ds.Urgencies())

	items, total := ds.FilterPayables([]string{"CRITICAL"}, &jan, &jan)
	assert.Empty(t, items)
	assert.Zero(t, total)

	items, total = ds.FilterPayables(nil, &jan, nil)
	require.Len(t, items, 1)
	assert.Equal(t, "Электроэнергия", items[0].Expense)
	assert.Equal(t, 500.0, total)
}

func TestLoadIsCachedUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cashflow.csv"), []byte(specCSV))
	svc, reportCache := newTestService(t, dir, nil)

	first, err := svc.Load(context.Background())
	require.NoError(t, err)
	second, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, reportCache.ItemCount())

	svc.Invalidate()
	assert.Zero(t, reportCache.ItemCount())

	third, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, first.Cashflow(), third.Cashflow())
}

func TestLoadReparsesChangedSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cashflow.csv")
	writeFile(t, path, []byte(specCSV))
	svc, reportCache := newTestService(t, dir, nil)

	first, err := svc.Load(context.Background())
	require.NoError(t, err)

	writeFile(t, path, []byte(specCSV+"Fee,2026-02-28,With Partners,10\n"))
	second, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 10.0, second.ValueAt(feb, models.ScenarioWithPartners))
	assert.NotEqual(t, first.Report().Fingerprint, second.Report().Fingerprint)
	assert.Equal(t, 1, reportCache.ItemCount())
}

func TestLoadConcurrentCallersShareOneDataset(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "upm_2026.xlsx"), true)
	svc, _ := newTestService(t, dir, nil)

	const callers = 16
	results := make([]*Dataset, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Load(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string][]byte
		tweak     func(cfg *config.AppConfig)
		wantErr   error
		wantStage string
	}{
		{
			name:      "no source",
			wantErr:   models.ErrSourceNotFound,
			wantStage: models.StageLocate,
		},
		{
			name:      "zero-byte source",
			files:     map[string][]byte{"cashflow.csv": {}},
			wantErr:   models.ErrEmptyDataset,
			wantStage: models.StageLocate,
		},
		{
			name:      "binary csv",
			files:     map[string][]byte{"cashflow.csv": []byte("Item,Date\x00,Scenario,Amount\n")},
			wantErr:   models.ErrUnrecognizedFormat,
			wantStage: models.StageValidate,
		},
		{
			name:      "workbook that is not a zip",
			files:     map[string][]byte{"upm.xlsx": []byte("Item;Date;Scenario;Amount\n")},
			wantErr:   models.ErrUnrecognizedFormat,
			wantStage: models.StageValidate,
		},
		{
			name:      "too few columns",
			files:     map[string][]byte{"cashflow.csv": []byte("Item,Amount\nRent,1\n")},
			wantErr:   models.ErrUnrecognizedFormat,
			wantStage: models.StageRead,
		},
		{
			name:      "missing columns",
			files:     map[string][]byte{"cashflow.csv": []byte("Item,Date,Value\nRent,2026-01-31,1\n")},
			wantErr:   models.ErrMissingRequiredColumn,
			wantStage: models.StageExtract,
		},
		{
			name:      "nothing survives normalization",
			files:     map[string][]byte{"cashflow.csv": []byte("Item,Date,Scenario,Amount\nRent,someday,No Partners,1\n")},
			wantErr:   models.ErrEmptyDataset,
			wantStage: models.StageAggregate,
		},
		{
			name:      "strict drop policy",
			files:     map[string][]byte{"cashflow.csv": []byte(specCSV + "Bad,2026-01-31,No Partners,n/a\n")},
			tweak:     func(cfg *config.AppConfig) { cfg.DropPolicy = config.DropPolicyStrict },
			wantErr:   models.ErrRowsDropped,
			wantStage: models.StageExtract,
		},
		{
			name:      "size limit",
			files:     map[string][]byte{"cashflow.csv": []byte(specCSV)},
			tweak:     func(cfg *config.AppConfig) { cfg.MaxSourceBytes = 16 },
			wantErr:   models.ErrUnrecognizedFormat,
			wantStage: models.StageValidate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, data := range tt.files {
				writeFile(t, filepath.Join(dir, name), data)
			}
			svc, reportCache := newTestService(t, dir, tt.tweak)

			ds, err := svc.Load(context.Background())
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.ErrorIs(t, err, tt.wantErr)

			var stageErr *models.StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, tt.wantStage, stageErr.Stage)
			assert.Contains(t, err.Error(), tt.wantStage+" stage failed")
			assert.Zero(t, reportCache.ItemCount())
		})
	}
}

func TestLoadRecoversAfterSourceIsFixed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cashflow.csv")
	writeFile(t, path, []byte("Item,Date,Value\n"))
	svc, _ := newTestService(t, dir, nil)

	_, err := svc.Load(context.Background())
	require.ErrorIs(t, err, models.ErrMissingRequiredColumn)

	writeFile(t, path, []byte(specCSV))
	ds, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Cashflow(), 2)
}

func TestDatasetAccessorsReturnCopies(t *testing.T) {
	ds := NewDataset(
		[]models.CashflowRecord{{Category: "Rent", Date: jan, Scenario: "No Partners", AmountSigned: -1, AmountAbs: 1}},
		[]models.PayableRecord{{Expense: "Tax", Urgency: "LOW"}},
		models.LoadReport{EmptySheets: []string{"Сводная"}},
		[]string{"No Partners", "With Partners"},
		"No Partners",
	)

	cf := ds.Cashflow()
	cf[0].Category = "changed"
	assert.Equal(t, "Rent", ds.Cashflow()[0].Category)

	totals := ds.MonthlyTotals()
	totals[models.MonthlyKey{Date: jan, Scenario: "No Partners"}] = 99
	assert.Equal(t, 1.0, ds.ValueAt(jan, "No Partners"))

	report := ds.Report()
	report.EmptySheets[0] = "changed"
	assert.Equal(t, []string{"Сводная"}, ds.Report().EmptySheets)

	assert.Equal(t, []string{"No Partners", "With Partners"}, ds.Scenarios())
	summary := ds.Summary(jan)
	assert.Equal(t, 1.0, summary.Scenarios[0].ValueAtRefDate)
	assert.Zero(t, summary.DaysToPeak)
}
