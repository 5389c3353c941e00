package bigquery

import "context"

// RowSink is the persistence interface the worker and API depend on. It
// enables mocking in tests; the package-level functions are the production
// implementation.
type RowSink interface {
	StartImportBatch(ctx context.Context, clientTaxID string) (string, error)
	InsertPeakRows(ctx context.Context, rows []*PeakRowRecord) error
	FinishImportBatch(ctx context.Context, batchID string, docCount, rowCount, reviewCount int64) error
	MarkImportBatchFailed(ctx context.Context, batchID string, batchErr error)
	ListPeakRowsByBatch(ctx context.Context, batchID string) ([]*PeakRowRecord, error)
	ListRowsNeedingReview(ctx context.Context, batchID string) ([]*PeakRowRecord, error)
}

// Sink is the production RowSink backed by the package-level functions.
type Sink struct{}

func (Sink) StartImportBatch(ctx context.Context, clientTaxID string) (string, error) {
	return StartImportBatch(ctx, clientTaxID)
}

func (Sink) InsertPeakRows(ctx context.Context, rows []*PeakRowRecord) error {
	return InsertPeakRows(ctx, rows)
}

func (Sink) FinishImportBatch(ctx context.Context, batchID string, docCount, rowCount, reviewCount int64) error {
	return FinishImportBatch(ctx, batchID, docCount, rowCount, reviewCount)
}

func (Sink) MarkImportBatchFailed(ctx context.Context, batchID string, batchErr error) {
	MarkImportBatchFailed(ctx, batchID, batchErr)
}

func (Sink) ListPeakRowsByBatch(ctx context.Context, batchID string) ([]*PeakRowRecord, error) {
	return ListPeakRowsByBatch(ctx, batchID)
}

func (Sink) ListRowsNeedingReview(ctx context.Context, batchID string) ([]*PeakRowRecord, error) {
	return ListRowsNeedingReview(ctx, batchID)
}
