// backend/src/services/interfaces.go
package services

import "context"

// DatasetService runs the ingestion pipeline and memoizes its result per
// source version.
type DatasetService interface {
	// Load returns the dataset for the current source, parsing it only when
	// the source changed since the last successful load.
	Load(ctx context.Context) (*Dataset, error)
	// Invalidate drops every memoized dataset.
	Invalidate()
}
