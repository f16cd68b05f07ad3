package models

import (
	"errors"
	"fmt"
	"strings"
)

// Load-level failures. Row-level problems never produce one of these; they
// only show up as dropped-row counts in the LoadReport.
var (
	ErrSourceNotFound        = errors.New("no cashflow source file found")
	ErrUnrecognizedFormat    = errors.New("unrecognized source format")
	ErrMissingRequiredColumn = errors.New("missing required column")
	ErrEmptyDataset          = errors.New("normalized cashflow dataset is empty")
	ErrRowsDropped           = errors.New("rows dropped under strict policy")
)

// Pipeline stages named in StageError.
const (
	StageLocate    = "locate"
	StageValidate  = "validate"
	StageRead      = "read"
	StageExtract   = "extract"
	StageAggregate = "aggregate"
)

// StageError tags a fatal error with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FormatError lists every read attempt made before giving up.
type FormatError struct {
	Source   string
	Attempts []ReadAttempt
	Cause    string
}

func (e *FormatError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %s", ErrUnrecognizedFormat, e.Source)
	if e.Cause != "" {
		fmt.Fprintf(&b, " (%s)", e.Cause)
	}
	if len(e.Attempts) > 0 {
		parts := make([]string, 0, len(e.Attempts))
		for _, a := range e.Attempts {
			p := a.String()
			if a.Error != "" {
				p += ": " + a.Error
			}
			parts = append(parts, p)
		}
		b.WriteString("; tried [" + strings.Join(parts, "; ") + "]")
	}
	return b.String()
}

func (e *FormatError) Unwrap() error { return ErrUnrecognizedFormat }

// MissingColumnsError enumerates required columns absent from a header.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissingRequiredColumn, strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingRequiredColumn }

// DroppedRowsError reports how many rows a strict load refused to drop silently.
type DroppedRowsError struct {
	Cashflow int
	Payables int
}

func (e *DroppedRowsError) Error() string {
	return fmt.Sprintf("%v: %d cashflow, %d payables", ErrRowsDropped, e.Cashflow, e.Payables)
}

func (e *DroppedRowsError) Unwrap() error { return ErrRowsDropped }
