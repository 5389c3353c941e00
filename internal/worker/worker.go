// Package worker glues the job queue to the extraction pipeline: it fetches
// document text from GCS, runs one pipeline pass, and stores the resulting
// row in BigQuery. Both the worker binary and the API's embedded consumer
// use the same Processor.
package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/peak-importer/internal/aipatch"
	"github.com/dvloznov/peak-importer/internal/config"
	"github.com/dvloznov/peak-importer/internal/extractors"
	"github.com/dvloznov/peak-importer/internal/gcsdocs"
	infra "github.com/dvloznov/peak-importer/internal/infra/bigquery"
	"github.com/dvloznov/peak-importer/internal/jobs"
	"github.com/dvloznov/peak-importer/internal/logger"
	"github.com/dvloznov/peak-importer/internal/pipeline"
)

// Processor handles extract-document jobs.
type Processor struct {
	Pipe *pipeline.Pipeline
	Docs gcsdocs.Store
	Sink infra.RowSink
}

// NewProcessor builds a processor around the given pipeline.
func NewProcessor(pipe *pipeline.Pipeline, docs gcsdocs.Store, sink infra.RowSink) *Processor {
	return &Processor{Pipe: pipe, Docs: docs, Sink: sink}
}

// BuildPipeline wires the standard pipeline: keyword classifier, the shipped
// extractors, and optionally the Gemini enhancer/repairer. withAI failing to
// initialize is fatal only when AI was requested.
func BuildPipeline(ctx context.Context, withAI bool) (*pipeline.Pipeline, error) {
	registry := pipeline.NewRegistry(&extractors.Generic{})
	registry.Register(pipeline.RouteTikTok, &extractors.TikTok{})

	p := &pipeline.Pipeline{
		Classifier:           &extractors.KeywordClassifier{},
		Registry:             registry,
		FillMissingOnEnhance: true,
	}

	if withAI {
		filler, err := aipatch.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("BuildPipeline: creating Gemini filler: %w", err)
		}
		p.Enhancer = filler
		p.Repairer = filler
	}

	return p, nil
}

// Handle implements jobs.JobHandler for extract-document jobs.
func (p *Processor) Handle(ctx context.Context, job jobs.Job) error {
	extractJob, ok := job.(*jobs.ExtractDocumentJob)
	if !ok {
		return fmt.Errorf("Handle: unexpected job type %T", job)
	}
	log := logger.FromContext(ctx)

	textURI := extractJob.TextGCSURI
	if textURI == "" {
		textURI = extractJob.GCSURI
	}
	text, err := p.Docs.FetchText(ctx, textURI)
	if err != nil {
		return fmt.Errorf("Handle: fetching document text: %w", err)
	}

	filename := extractJob.Filename
	if filename == "" {
		filename = p.Docs.FilenameFromURI(extractJob.GCSURI)
	}

	cfg := config.Default()
	if len(extractJob.Config) > 0 {
		parsed, err := config.FromJSON(extractJob.Config)
		if err != nil {
			return fmt.Errorf("Handle: parsing job config: %w", err)
		}
		cfg = parsed
	}

	result := p.Pipe.ExtractRow(ctx, pipeline.Input{
		Text:         text,
		Filename:     filename,
		ClientTaxID:  extractJob.ClientTaxID,
		PlatformHint: extractJob.PlatformHint,
		Cfg:          cfg,
	})

	rowID := uuid.New().String()
	rec := infra.NewPeakRowRecord(rowID, extractJob.BatchID, filename, result.Platform, result.Row, result.Errors)
	if err := p.Sink.InsertPeakRows(ctx, []*infra.PeakRowRecord{rec}); err != nil {
		return fmt.Errorf("Handle: storing row: %w", err)
	}
	extractJob.RowID = rowID

	log.Info().
		Str("job_id", extractJob.JobID).
		Str("row_id", rowID).
		Str("platform", result.Platform).
		Int("validation_errors", len(result.Errors)).
		Bool("needs_review", rec.NeedsReview).
		Msg("document extracted")

	return nil
}
