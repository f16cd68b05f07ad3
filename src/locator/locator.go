// backend/src/locator/locator.go
package locator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/username/cashflowrisk/backend/src/logger"
	"github.com/username/cashflowrisk/backend/src/models"
)

// spreadsheetExts are the workbook extensions considered as sources.
var spreadsheetExts = map[string]bool{
	".xlsx": true,
	".xlsm": true,
}

// Options configures where and how the source file is looked for.
type Options struct {
	Dir       string
	Recursive bool
	Keywords  []string // Preferred name fragments, highest priority first
	CSVName   string   // Delimited fallback looked up in Dir
}

// Locator finds the single source file of a load.
type Locator struct {
	opts Options
}

func New(opts Options) *Locator {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	return &Locator{opts: opts}
}

// Locate returns the preferred spreadsheet, or the CSV fallback when no
// spreadsheet exists. It fails with models.ErrSourceNotFound when neither is present.
func (l *Locator) Locate() (models.Source, error) {
	candidates, err := l.spreadsheets()
	if err != nil {
		return models.Source{}, fmt.Errorf("failed to list %s: %w", l.opts.Dir, err)
	}

	if len(candidates) > 0 {
		path := pick(candidates, l.opts.Keywords)
		logger.L.Debug("Spreadsheet candidates found", "count", len(candidates), "picked", path)
		return describe(path, models.SourceXLSX)
	}

	if l.opts.CSVName != "" {
		path := filepath.Join(l.opts.Dir, l.opts.CSVName)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			logger.L.Debug("No spreadsheet found, using delimited fallback", "path", path)
			return describe(path, models.SourceCSV)
		}
	}

	return models.Source{}, fmt.Errorf("%w in %s (no *.xlsx/*.xlsm, no %s)", models.ErrSourceNotFound, l.opts.Dir, l.opts.CSVName)
}

func (l *Locator) spreadsheets() ([]string, error) {
	var out []string
	if !l.opts.Recursive {
		entries, err := os.ReadDir(l.opts.Dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && isSpreadsheet(e.Name()) {
				out = append(out, filepath.Join(l.opts.Dir, e.Name()))
			}
		}
		return out, nil
	}

	err := filepath.WalkDir(l.opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.L.Warn("Skipping unreadable path during source search", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != l.opts.Dir && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && isSpreadsheet(d.Name()) {
			out = append(out, path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return out, err
}

// isSpreadsheet reports whether name is a workbook and not an Office lock file.
func isSpreadsheet(name string) bool {
	if strings.HasPrefix(name, "~$") {
		return false
	}
	return spreadsheetExts[strings.ToLower(filepath.Ext(name))]
}

// pick applies the keyword priority to base names; ties go to listing order.
func pick(candidates []string, keywords []string) string {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		for _, path := range candidates {
			if strings.Contains(strings.ToLower(filepath.Base(path)), kw) {
				return path
			}
		}
	}
	return candidates[0]
}

func describe(path string, kind models.SourceKind) (models.Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Source{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return models.Source{Path: path, Kind: kind, Size: info.Size(), ModTime: info.ModTime()}, nil
}
