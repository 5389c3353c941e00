package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dvloznov/peak-importer/internal/config"
	"github.com/dvloznov/peak-importer/internal/gcsdocs"
	infraBQ "github.com/dvloznov/peak-importer/internal/infra/bigquery"
	"github.com/dvloznov/peak-importer/internal/logger"
	"github.com/dvloznov/peak-importer/internal/peak"
	"github.com/dvloznov/peak-importer/internal/pipeline"
	"github.com/dvloznov/peak-importer/internal/review"
	"github.com/dvloznov/peak-importer/internal/worker"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "extract":
		runExtract(log)
	case "ingest":
		runIngest(log)
	case "upload":
		runUpload(log)
	case "review-sync":
		runReviewSync(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("PEAK Importer CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  extract      Extract an accounting row from a local text file")
	fmt.Println("  ingest       Extract documents from GCS into a BigQuery import batch")
	fmt.Println("  upload       Upload a document to GCS")
	fmt.Println("  review-sync  Export a batch's needs-review rows to Notion")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// loadConfig reads an optional JSON config file, falling back to defaults.
func loadConfig(path string, log zerolog.Logger) *config.Config {
	if path == "" {
		return config.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read config file")
	}
	cfg, err := config.FromJSON(data)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to parse config file")
	}
	return cfg
}

func runExtract(log zerolog.Logger) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	textPath := fs.String("file", "", "Path to local document text file")
	clientTaxID := fs.String("client-tax-id", "", "13-digit client tax ID")
	platformHint := fs.String("platform", "", "Force a platform instead of auto-detecting")
	configPath := fs.String("config", "", "Path to JSON config file")
	format := fs.String("format", "json", "Output format: json or csv")
	withAI := fs.Bool("ai", false, "Enable Gemini field enhancement and repair")
	fs.Parse(os.Args[2:])

	if *textPath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	text, err := os.ReadFile(*textPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read document text")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	pipe, err := worker.BuildPipeline(ctx, *withAI)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build extraction pipeline")
	}

	result := pipe.ExtractRow(ctx, pipeline.Input{
		Text:         string(text),
		Filename:     filepath.Base(*textPath),
		ClientTaxID:  *clientTaxID,
		PlatformHint: *platformHint,
		Cfg:          loadConfig(*configPath, log),
	})

	if err := printRow(result, *format); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\nValidation errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
	}
}

func printRow(result pipeline.Result, format string) error {
	switch format {
	case "csv":
		w := csv.NewWriter(os.Stdout)
		if err := w.Write(peak.Keys()); err != nil {
			return err
		}
		if err := w.Write(result.Row.Values()); err != nil {
			return err
		}
		w.Flush()
		return w.Error()
	case "json":
		out, err := json.MarshalIndent(map[string]interface{}{
			"platform": result.Platform,
			"row":      result.Row.Map(),
			"errors":   result.Errors,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	default:
		return fmt.Errorf("printRow: unknown format %q", format)
	}
}

func runIngest(log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	clientTaxID := fs.String("client-tax-id", "", "13-digit client tax ID for the batch")
	configPath := fs.String("config", "", "Path to JSON config file")
	withAI := fs.Bool("ai", false, "Enable Gemini field enhancement and repair")
	fs.Parse(os.Args[2:])

	uris := fs.Args()
	if len(uris) == 0 {
		log.Fatal().Msg("Usage: cli ingest [options] gs://bucket/doc.txt ...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	pipe, err := worker.BuildPipeline(ctx, *withAI)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build extraction pipeline")
	}

	cfg := loadConfig(*configPath, log)
	docs := gcsdocs.NewGCSStore()
	sink := infraBQ.Sink{}

	batchID, err := sink.StartImportBatch(ctx, *clientTaxID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start import batch")
	}
	log.Info().Str("batch_id", batchID).Int("documents", len(uris)).Msg("Import batch started")

	var records []*infraBQ.PeakRowRecord
	for _, uri := range uris {
		text, err := docs.FetchText(ctx, uri)
		if err != nil {
			sink.MarkImportBatchFailed(ctx, batchID, err)
			log.Fatal().Err(err).Str("uri", uri).Msg("Failed to fetch document text")
		}
		filename := docs.FilenameFromURI(uri)

		result := pipe.ExtractRow(ctx, pipeline.Input{
			Text:        text,
			Filename:    filename,
			ClientTaxID: *clientTaxID,
			Cfg:         cfg,
		})

		rec := infraBQ.NewPeakRowRecord(uuid.New().String(), batchID, filename, result.Platform, result.Row, result.Errors)
		records = append(records, rec)

		log.Info().
			Str("file", filename).
			Str("platform", result.Platform).
			Bool("needs_review", rec.NeedsReview).
			Msg("Document extracted")
	}

	if err := sink.InsertPeakRows(ctx, records); err != nil {
		sink.MarkImportBatchFailed(ctx, batchID, err)
		log.Fatal().Err(err).Msg("Failed to insert rows")
	}

	var reviewCount int64
	for _, rec := range records {
		if rec.NeedsReview {
			reviewCount++
		}
	}
	if err := sink.FinishImportBatch(ctx, batchID, int64(len(uris)), int64(len(records)), reviewCount); err != nil {
		log.Fatal().Err(err).Msg("Failed to finish import batch")
	}

	fmt.Printf("Batch %s: %d rows imported, %d need review.\n", batchID, len(records), reviewCount)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local document file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	docs := gcsdocs.NewGCSStore()
	if err := docs.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func runReviewSync(log zerolog.Logger) {
	fs := flag.NewFlagSet("review-sync", flag.ExitOnError)
	batchID := fs.String("batch-id", "", "Import batch ID to export (required)")
	notionToken := fs.String("notion-token", os.Getenv("NOTION_TOKEN"), "Notion API token")
	notionDBID := fs.String("notion-db-id", os.Getenv("NOTION_REVIEW_DB_ID"), "Notion review database ID")
	dryRun := fs.Bool("dry-run", false, "Preview changes without writing to Notion")
	fs.Parse(os.Args[2:])

	if *batchID == "" {
		log.Fatal().Msg("Error: --batch-id is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or NOTION_TOKEN is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or NOTION_REVIEW_DB_ID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("batch_id", *batchID).
		Bool("dry_run", *dryRun).
		Msg("Starting review export")

	notionClient := review.NewNotionClient(*notionToken)

	if err := review.ExportBatch(ctx, infraBQ.Sink{}, notionClient, *notionDBID, *batchID, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Review export failed")
	}

	fmt.Println("Review export completed successfully.")
}
