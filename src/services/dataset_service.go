// backend/src/services/dataset_service.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/username/cashflowrisk/backend/src/config"
	"github.com/username/cashflowrisk/backend/src/locator"
	"github.com/username/cashflowrisk/backend/src/logger"
	"github.com/username/cashflowrisk/backend/src/models"
	"github.com/username/cashflowrisk/backend/src/parsers"
	"github.com/username/cashflowrisk/backend/src/processors"
	"github.com/username/cashflowrisk/backend/src/security/validation"
)

const ckDataset = "dataset_%s|%s"

// sourceSignature is the last successful load of a path. size and modTime
// let a repeated load skip rereading an unchanged file.
type sourceSignature struct {
	size    int64
	modTime time.Time
	key     string
}

type datasetServiceImpl struct {
	cfg               *config.AppConfig
	locator           *locator.Locator
	csvReader         *parsers.CSVReader
	cashflowProcessor processors.CashflowProcessor
	payablesProcessor processors.PayablesProcessor
	reportCache       *cache.Cache

	group      singleflight.Group
	mu         sync.Mutex
	signatures map[string]sourceSignature
}

func NewDatasetService(
	cfg *config.AppConfig,
	loc *locator.Locator,
	cashflowProcessor processors.CashflowProcessor,
	payablesProcessor processors.PayablesProcessor,
	reportCache *cache.Cache,
) DatasetService {
	return &datasetServiceImpl{
		cfg:               cfg,
		locator:           loc,
		csvReader:         parsers.NewCSVReader(),
		cashflowProcessor: cashflowProcessor,
		payablesProcessor: payablesProcessor,
		reportCache:       reportCache,
		signatures:        make(map[string]sourceSignature),
	}
}

func (s *datasetServiceImpl) Load(ctx context.Context) (*Dataset, error) {
	log := logger.FromContext(ctx)

	src, err := s.locator.Locate()
	if err != nil {
		log.Warn("Cashflow source not located", "error", err)
		return nil, &models.StageError{Stage: models.StageLocate, Err: err}
	}
	if src.Size == 0 {
		return nil, &models.StageError{Stage: models.StageLocate, Err: fmt.Errorf("%w: %s is a zero-byte file", models.ErrEmptyDataset, src.Path)}
	}

	if ds, ok := s.cachedBySignature(src); ok {
		log.Debug("Dataset cache hit", "path", src.Path)
		return ds, nil
	}

	v, err, shared := s.group.Do(src.Path, func() (interface{}, error) {
		return s.loadSource(ctx, src)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug("Dataset load shared with a concurrent caller", "path", src.Path)
	}
	return v.(*Dataset), nil
}

func (s *datasetServiceImpl) Invalidate() {
	s.mu.Lock()
	s.signatures = make(map[string]sourceSignature)
	s.mu.Unlock()
	s.reportCache.Flush()
	logger.L.Info("Dataset cache invalidated")
}

func (s *datasetServiceImpl) cachedBySignature(src models.Source) (*Dataset, bool) {
	s.mu.Lock()
	sig, ok := s.signatures[src.Path]
	s.mu.Unlock()
	if !ok || sig.size != src.Size || !sig.modTime.Equal(src.ModTime) {
		return nil, false
	}
	if cached, found := s.reportCache.Get(sig.key); found {
		return cached.(*Dataset), true
	}
	return nil, false
}

// loadSource reads the file, then either reuses the dataset cached for the same
// content or runs the pipeline and replaces the entry of the previous version.
func (s *datasetServiceImpl) loadSource(ctx context.Context, src models.Source) (*Dataset, error) {
	log := logger.FromContext(ctx)

	data, err := s.readSource(src.Path)
	if err != nil {
		return nil, &models.StageError{Stage: models.StageRead, Err: err}
	}
	if len(data) == 0 {
		return nil, &models.StageError{Stage: models.StageLocate, Err: fmt.Errorf("%w: %s is a zero-byte file", models.ErrEmptyDataset, src.Path)}
	}

	sum := sha256.Sum256(data)
	fingerprint := hex.EncodeToString(sum[:])
	cacheKey := fmt.Sprintf(ckDataset, src.Path, fingerprint)

	if cached, found := s.reportCache.Get(cacheKey); found {
		log.Debug("Source content unchanged, reusing dataset", "path", src.Path)
		s.remember(src, cacheKey)
		return cached.(*Dataset), nil
	}

	if err := validation.ValidateSourceContent(src.Kind, data, s.cfg.MaxSourceBytes); err != nil {
		return nil, &models.StageError{Stage: models.StageValidate, Err: fmt.Errorf("%w: %w", models.ErrUnrecognizedFormat, err)}
	}

	log.Info("Loading cashflow source", "path", src.Path, "kind", src.Kind, "size", len(data))
	ds, err := s.build(ctx, src, data, fingerprint)
	if err != nil {
		log.Error("Cashflow load failed", "path", src.Path, "error", err)
		return nil, err
	}

	s.reportCache.Set(cacheKey, ds, cache.NoExpiration)
	if previous := s.remember(src, cacheKey); previous != "" && previous != cacheKey {
		s.reportCache.Delete(previous)
		log.Info("Source changed, previous dataset evicted", "path", src.Path)
	}

	r := ds.report
	log.Info("Cashflow source loaded",
		"path", src.Path,
		"cashflowRecords", r.CashflowRecords,
		"payableRecords", r.PayableRecords,
		"droppedCashflow", r.DroppedCashflow,
		"droppedPayables", r.DroppedPayables,
		"emptySheets", r.EmptySheets)
	return ds, nil
}

// remember stores the signature of a successful load and returns the cache key
// it replaces.
func (s *datasetServiceImpl) remember(src models.Source, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.signatures[src.Path].key
	s.signatures[src.Path] = sourceSignature{size: src.Size, modTime: src.ModTime, key: key}
	return previous
}

func (s *datasetServiceImpl) readSource(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if s.cfg.MaxSourceBytes > 0 {
		// One extra byte lets validation see that the limit was exceeded.
		r = io.LimitReader(f, s.cfg.MaxSourceBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (s *datasetServiceImpl) build(ctx context.Context, src models.Source, data []byte, fingerprint string) (*Dataset, error) {
	log := logger.FromContext(ctx)
	name := filepath.Base(src.Path)

	report := models.LoadReport{
		Source:      src,
		Fingerprint: fingerprint,
		Sheets:      []models.SheetReport{},
		EmptySheets: []string{},
		LoadedAt:    time.Now().UTC(),
	}
	var cashflow []models.CashflowRecord
	var payables []models.PayableRecord

	switch src.Kind {
	case models.SourceCSV:
		res, err := s.csvReader.Read(name, data)
		if err != nil {
			return nil, &models.StageError{Stage: models.StageRead, Err: err}
		}
		used := res.Used
		report.Attempts = res.Attempts
		report.UsedAttempt = &used
		log.Info("Delimited source read", "delimiter", used.Delimiter, "encoding", used.Encoding, "attempts", len(res.Attempts))

		cf, err := s.cashflowProcessor.ProcessLong(res.Table)
		if err != nil {
			return nil, &models.StageError{Stage: models.StageExtract, Err: err}
		}
		cashflow = cf.Records
		report.DroppedCashflow = cf.Dropped
		report.Sheets = append(report.Sheets, models.SheetReport{
			Sheet: name, Role: parsers.RoleCashflow, Strategy: cf.Strategy, Records: len(cf.Records), Dropped: cf.Dropped,
		})

	case models.SourceXLSX:
		wb, err := parsers.ReadWorkbook(name, data)
		if err != nil {
			return nil, &models.StageError{Stage: models.StageRead, Err: err}
		}
		plan := parsers.AssignSheets(wb.SheetNames(), s.sheetNames())
		report.SheetSelection = plan.Selection
		report.EmptySheets = append(report.EmptySheets, plan.Missing...)
		if len(plan.Missing) > 0 {
			log.Warn("Expected sheets absent from workbook", "missing", plan.Missing, "selection", plan.Selection)
		}

		for _, a := range plan.Assignments {
			table, _ := wb.Sheet(a.Sheet)
			switch a.Role {
			case parsers.RoleCashflow:
				res := s.cashflowProcessor.Process(table, a.Scenario)
				cashflow = append(cashflow, res.Records...)
				report.DroppedCashflow += res.Dropped
				report.Sheets = append(report.Sheets, models.SheetReport{
					Sheet: a.Sheet, Role: a.Role, Scenario: a.Scenario, Strategy: res.Strategy, Records: len(res.Records), Dropped: res.Dropped,
				})
				log.Info("Cashflow sheet extracted", "sheet", a.Sheet, "scenario", a.Scenario, "strategy", res.Strategy, "records", len(res.Records), "dropped", res.Dropped)
			case parsers.RolePayables:
				res := s.payablesProcessor.Process(table)
				payables = append(payables, res.Records...)
				report.DroppedPayables += res.Dropped
				report.Sheets = append(report.Sheets, models.SheetReport{
					Sheet: a.Sheet, Role: a.Role, Records: len(res.Records), Dropped: res.Dropped,
				})
			}
		}

	default:
		return nil, &models.StageError{Stage: models.StageRead, Err: fmt.Errorf("%w: unsupported source kind %q", models.ErrUnrecognizedFormat, src.Kind)}
	}

	if s.cfg.DropPolicy == config.DropPolicyStrict && (report.DroppedCashflow > 0 || report.DroppedPayables > 0) {
		return nil, &models.StageError{Stage: models.StageExtract, Err: &models.DroppedRowsError{
			Cashflow: report.DroppedCashflow,
			Payables: report.DroppedPayables,
		}}
	}
	if len(cashflow) == 0 {
		return nil, &models.StageError{Stage: models.StageAggregate, Err: fmt.Errorf("%w (source %s)", models.ErrEmptyDataset, name)}
	}

	report.CashflowRecords = len(cashflow)
	report.PayableRecords = len(payables)
	return NewDataset(cashflow, payables, report, []string{s.cfg.ScenarioNoPartners, s.cfg.ScenarioWithPartners}, s.cfg.ScenarioNoPartners), nil
}

func (s *datasetServiceImpl) sheetNames() parsers.SheetNames {
	return parsers.SheetNames{
		WithPartners:         s.cfg.SheetWithPartners,
		NoPartners:           s.cfg.SheetNoPartners,
		Payables:             s.cfg.SheetPayables,
		ScenarioWithPartners: s.cfg.ScenarioWithPartners,
		ScenarioNoPartners:   s.cfg.ScenarioNoPartners,
	}
}

// IsClientError reports whether a load error comes from the source data rather
// than from the service itself.
func IsClientError(err error) bool {
	return errors.Is(err, models.ErrUnrecognizedFormat) ||
		errors.Is(err, models.ErrMissingRequiredColumn) ||
		errors.Is(err, models.ErrEmptyDataset) ||
		errors.Is(err, models.ErrRowsDropped)
}
