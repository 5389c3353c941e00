package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const peakRowsTable = "rows"

// InsertPeakRows inserts a batch of finalized rows into peak.rows.
func InsertPeakRows(ctx context.Context, rows []*PeakRowRecord) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertPeakRows: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertPeakRowsWithClient(ctx, client, rows)
}

// InsertPeakRowsWithClient inserts a batch of finalized rows using the
// provided BigQuery client.
func InsertPeakRowsWithClient(ctx context.Context, client *bigquery.Client, rows []*PeakRowRecord) error {
	if len(rows) == 0 {
		return nil
	}
	inserter := client.Dataset(datasetID).Table(peakRowsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertPeakRowsWithClient: inserting %d rows: %w", len(rows), err)
	}
	return nil
}

// ListPeakRowsByBatch retrieves every row of one import batch in insertion
// order.
func ListPeakRowsByBatch(ctx context.Context, batchID string) ([]*PeakRowRecord, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListPeakRowsByBatch: creating client: %w", err)
	}
	defer client.Close()

	return ListPeakRowsByBatchWithClient(ctx, client, batchID)
}

// ListPeakRowsByBatchWithClient retrieves a batch's rows using the provided
// BigQuery client.
func ListPeakRowsByBatchWithClient(ctx context.Context, client *bigquery.Client, batchID string) ([]*PeakRowRecord, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT *
		FROM `+"`%s.%s.%s`"+`
		WHERE batch_id = @batch_id
		ORDER BY created_ts
	`, projectID, datasetID, peakRowsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "batch_id", Value: batchID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListPeakRowsByBatchWithClient: reading query: %w", err)
	}

	var rows []*PeakRowRecord
	for {
		var row PeakRowRecord
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListPeakRowsByBatchWithClient: iterating rows: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

// ListRowsNeedingReview retrieves the rows of one batch that failed
// validation or have no resolved wallet.
func ListRowsNeedingReview(ctx context.Context, batchID string) ([]*PeakRowRecord, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListRowsNeedingReview: creating client: %w", err)
	}
	defer client.Close()

	return ListRowsNeedingReviewWithClient(ctx, client, batchID)
}

// ListRowsNeedingReviewWithClient retrieves review rows using the provided
// BigQuery client.
func ListRowsNeedingReviewWithClient(ctx context.Context, client *bigquery.Client, batchID string) ([]*PeakRowRecord, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT *
		FROM `+"`%s.%s.%s`"+`
		WHERE batch_id = @batch_id AND needs_review
		ORDER BY created_ts
	`, projectID, datasetID, peakRowsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "batch_id", Value: batchID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRowsNeedingReviewWithClient: reading query: %w", err)
	}

	var rows []*PeakRowRecord
	for {
		var row PeakRowRecord
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRowsNeedingReviewWithClient: iterating rows: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}
