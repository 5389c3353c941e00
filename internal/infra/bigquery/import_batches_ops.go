package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/peak-importer/internal/logger"
)

const (
	projectID          = "peak-importer-470212"
	datasetID          = "peak"
	importBatchesTable = "import_batches"
)

// StartImportBatch inserts a new row into peak.import_batches with
// status=RUNNING and returns the generated batch_id.
func StartImportBatch(ctx context.Context, clientTaxID string) (string, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("StartImportBatch: bigquery client: %w", err)
	}
	defer client.Close()

	return StartImportBatchWithClient(ctx, client, clientTaxID)
}

// StartImportBatchWithClient inserts a new row into peak.import_batches with
// status=RUNNING using the provided BigQuery client.
func StartImportBatchWithClient(ctx context.Context, client *bigquery.Client, clientTaxID string) (string, error) {
	batchID := uuid.NewString()
	started := time.Now()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			batch_id,
			client_tax_id,
			started_ts,
			status
		) VALUES (
			@batch_id,
			@client_tax_id,
			@started_ts,
			'RUNNING'
		)
	`, datasetID, importBatchesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "batch_id", Value: batchID},
		{Name: "client_tax_id", Value: clientTaxID},
		{Name: "started_ts", Value: started},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("StartImportBatchWithClient: running insert: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("StartImportBatchWithClient: waiting for insert: %w", err)
	}
	if err := status.Err(); err != nil {
		return "", fmt.Errorf("StartImportBatchWithClient: insert failed: %w", err)
	}

	return batchID, nil
}

// FinishImportBatch sets status=SUCCEEDED with the final counters.
func FinishImportBatch(ctx context.Context, batchID string, docCount, rowCount, reviewCount int64) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("FinishImportBatch: bigquery client: %w", err)
	}
	defer client.Close()

	return FinishImportBatchWithClient(ctx, client, batchID, docCount, rowCount, reviewCount)
}

// FinishImportBatchWithClient sets status=SUCCEEDED using the provided client.
func FinishImportBatchWithClient(ctx context.Context, client *bigquery.Client, batchID string, docCount, rowCount, reviewCount int64) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = 'SUCCEEDED',
		    finished_ts = @finished_ts,
		    document_count = @document_count,
		    row_count = @row_count,
		    review_count = @review_count
		WHERE batch_id = @batch_id
	`, datasetID, importBatchesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "finished_ts", Value: time.Now()},
		{Name: "document_count", Value: docCount},
		{Name: "row_count", Value: rowCount},
		{Name: "review_count", Value: reviewCount},
		{Name: "batch_id", Value: batchID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("FinishImportBatchWithClient: running update: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("FinishImportBatchWithClient: waiting for update: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("FinishImportBatchWithClient: update failed: %w", err)
	}
	return nil
}

// MarkImportBatchFailed sets status=FAILED with the error message. Failures
// here are logged, not returned; batch bookkeeping must not mask the
// original error.
func MarkImportBatchFailed(ctx context.Context, batchID string, batchErr error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("MarkImportBatchFailed: bigquery client")
		return
	}
	defer client.Close()

	MarkImportBatchFailedWithClient(ctx, client, batchID, batchErr)
}

// MarkImportBatchFailedWithClient sets status=FAILED using the provided client.
func MarkImportBatchFailedWithClient(ctx context.Context, client *bigquery.Client, batchID string, batchErr error) {
	msg := ""
	if batchErr != nil {
		msg = batchErr.Error()
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = 'FAILED',
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE batch_id = @batch_id
	`, datasetID, importBatchesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: msg},
		{Name: "batch_id", Value: batchID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("batch_id", batchID).Msg("MarkImportBatchFailed: running update")
		return
	}
	if _, err := job.Wait(ctx); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("batch_id", batchID).Msg("MarkImportBatchFailed: waiting for update")
	}
}
