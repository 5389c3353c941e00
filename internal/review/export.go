package review

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	infra "github.com/dvloznov/peak-importer/internal/infra/bigquery"
	"github.com/dvloznov/peak-importer/internal/logger"
)

// ExportBatch pushes a batch's review rows to the Notion review database.
// Re-running is idempotent: pages are keyed by Row ID, existing pages are
// updated in place.
func ExportBatch(ctx context.Context, sink infra.RowSink, notionClient NotionService, notionDBID, batchID string, dryRun bool) error {
	log := logger.FromContext(ctx)

	rows, err := sink.ListRowsNeedingReview(ctx, batchID)
	if err != nil {
		return fmt.Errorf("ExportBatch: listing review rows: %w", err)
	}

	log.Info().
		Str("batch_id", batchID).
		Int("row_count", len(rows)).
		Bool("dry_run", dryRun).
		Msg("exporting review rows to Notion")

	if len(rows) == 0 {
		return nil
	}

	existing, err := queryAllPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("ExportBatch: querying existing pages: %w", err)
	}

	pageByRowID := make(map[string]string, len(existing))
	for _, page := range existing {
		if id := extractRowID(page); id != "" {
			pageByRowID[id] = string(page.ID)
		}
	}

	var created, updated int
	for _, rec := range rows {
		props := RowToNotionProperties(rec)
		pageID, exists := pageByRowID[rec.RowID]

		if dryRun {
			log.Info().
				Str("row_id", rec.RowID).
				Bool("exists", exists).
				Msg("[DRY RUN] would export review row")
			continue
		}

		if exists {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("row_id", rec.RowID).Msg("failed to update review page")
				continue
			}
			updated++
		} else {
			if _, err := notionClient.CreatePage(ctx, notionDBID, props); err != nil {
				log.Warn().Err(err).Str("row_id", rec.RowID).Msg("failed to create review page")
				continue
			}
			created++
		}
	}

	log.Info().
		Int("created", created).
		Int("updated", updated).
		Msg("review export finished")

	return nil
}

// queryAllPages pages through the whole database.
func queryAllPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

// extractRowID reads the Row ID title from a page's properties. Returns
// empty string if not found.
func extractRowID(page notionapi.Page) string {
	if prop, ok := page.Properties["Row ID"]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			if len(title.Title) > 0 {
				return title.Title[0].PlainText
			}
		}
	}
	return ""
}
