package models

import "time"

// SourceKind distinguishes the two supported source formats.
type SourceKind string

const (
	SourceXLSX SourceKind = "xlsx"
	SourceCSV  SourceKind = "csv"
)

// Source is a located input file.
type Source struct {
	Path    string     `json:"path"`
	Kind    SourceKind `json:"kind"`
	Size    int64      `json:"size"`
	ModTime time.Time  `json:"mod_time"`
}

// ReadAttempt records one (delimiter, encoding) combination tried on a delimited file.
type ReadAttempt struct {
	Delimiter string `json:"delimiter"`
	Encoding  string `json:"encoding"`
	Columns   int    `json:"columns"`
	Error     string `json:"error,omitempty"`
}

func (a ReadAttempt) String() string {
	return "delimiter=" + a.Delimiter + " encoding=" + a.Encoding
}

// SheetReport describes how one sheet was extracted.
type SheetReport struct {
	Sheet    string `json:"sheet"`
	Role     string `json:"role"` // "cashflow" or "payables"
	Scenario string `json:"scenario,omitempty"`
	Strategy string `json:"strategy,omitempty"` // Layout strategy that fired, cashflow only
	Records  int    `json:"records"`
	Dropped  int    `json:"dropped"`
}

// LoadReport collects the observable facts of one ingestion run.
type LoadReport struct {
	Source          Source        `json:"source"`
	Fingerprint     string        `json:"fingerprint"`
	Attempts        []ReadAttempt `json:"attempts,omitempty"`
	UsedAttempt     *ReadAttempt  `json:"used_attempt,omitempty"`
	SheetSelection  string        `json:"sheet_selection,omitempty"` // "by-name" or "positional"
	Sheets          []SheetReport `json:"sheets"`
	EmptySheets     []string      `json:"empty_sheets"`
	CashflowRecords int           `json:"cashflow_records"`
	PayableRecords  int           `json:"payable_records"`
	DroppedCashflow int           `json:"dropped_cashflow_rows"`
	DroppedPayables int           `json:"dropped_payable_rows"`
	LoadedAt        time.Time     `json:"loaded_at"`
}
