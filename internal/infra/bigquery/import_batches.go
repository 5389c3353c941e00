package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// ImportBatchRow tracks one extraction run over a set of uploaded documents.
type ImportBatchRow struct {
	BatchID     string `bigquery:"batch_id"`      // REQUIRED
	ClientTaxID string `bigquery:"client_tax_id"` // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"` // RUNNING | SUCCEEDED | FAILED
	ErrorMessage string `bigquery:"error_message"`

	DocumentCount bigquery.NullInt64 `bigquery:"document_count"`
	RowCount      bigquery.NullInt64 `bigquery:"row_count"`
	ReviewCount   bigquery.NullInt64 `bigquery:"review_count"`

	Metadata bigquery.NullJSON `bigquery:"metadata"`
}
