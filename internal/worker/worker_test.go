package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	infra "github.com/dvloznov/peak-importer/internal/infra/bigquery"
	"github.com/dvloznov/peak-importer/internal/jobs"
	"github.com/dvloznov/peak-importer/internal/pipeline"
)

type fakeDocs struct {
	texts map[string]string
}

func (f *fakeDocs) UploadFile(context.Context, string, string, string) error { return nil }
func (f *fakeDocs) Fetch(_ context.Context, uri string) ([]byte, error) {
	text, ok := f.texts[uri]
	if !ok {
		return nil, errors.New("object not found")
	}
	return []byte(text), nil
}
func (f *fakeDocs) FetchText(ctx context.Context, uri string) (string, error) {
	data, err := f.Fetch(ctx, uri)
	return string(data), err
}
func (f *fakeDocs) FilenameFromURI(uri string) string {
	parts := strings.Split(uri, "/")
	return parts[len(parts)-1]
}

type fakeSink struct {
	inserted []*infra.PeakRowRecord
	err      error
}

func (f *fakeSink) StartImportBatch(context.Context, string) (string, error) { return "b", nil }
func (f *fakeSink) InsertPeakRows(_ context.Context, rows []*infra.PeakRowRecord) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, rows...)
	return nil
}
func (f *fakeSink) FinishImportBatch(context.Context, string, int64, int64, int64) error {
	return nil
}
func (f *fakeSink) MarkImportBatchFailed(context.Context, string, error) {}
func (f *fakeSink) ListPeakRowsByBatch(context.Context, string) ([]*infra.PeakRowRecord, error) {
	return nil, nil
}
func (f *fakeSink) ListRowsNeedingReview(context.Context, string) ([]*infra.PeakRowRecord, error) {
	return nil, nil
}

func testProcessor(docs *fakeDocs, sink *fakeSink) *Processor {
	generic := pipeline.ExtractorFunc(func(_ context.Context, _ pipeline.Input) (map[string]string, error) {
		return map[string]string{
			"B_doc_date":    "20251103",
			"R_paid_amount": "107.00",
		}, nil
	})
	pipe := &pipeline.Pipeline{Registry: pipeline.NewRegistry(generic), FillMissingOnEnhance: true}
	return NewProcessor(pipe, docs, sink)
}

func TestHandleStoresRow(t *testing.T) {
	docs := &fakeDocs{texts: map[string]string{
		"gs://b/text/doc.txt": "Tax Invoice 107.00",
	}}
	sink := &fakeSink{}
	p := testProcessor(docs, sink)

	job := &jobs.ExtractDocumentJob{
		JobID:      "j1",
		BatchID:    "batch-1",
		GCSURI:     "gs://b/doc.pdf",
		TextGCSURI: "gs://b/text/doc.txt",
		Filename:   "doc.pdf",
	}
	if err := p.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(sink.inserted) != 1 {
		t.Fatalf("inserted %d rows, want 1", len(sink.inserted))
	}
	rec := sink.inserted[0]
	if rec.BatchID != "batch-1" {
		t.Errorf("BatchID = %q, want batch-1", rec.BatchID)
	}
	if rec.SourceFilename != "doc.pdf" {
		t.Errorf("SourceFilename = %q, want doc.pdf", rec.SourceFilename)
	}
	if rec.PaidAmount != "107.00" {
		t.Errorf("PaidAmount = %q, want 107.00", rec.PaidAmount)
	}
	if job.RowID == "" {
		t.Error("job.RowID should be set after a successful run")
	}
}

func TestHandleDerivesFilenameFromURI(t *testing.T) {
	docs := &fakeDocs{texts: map[string]string{
		"gs://b/uploads/invoice.pdf": "some text",
	}}
	sink := &fakeSink{}
	p := testProcessor(docs, sink)

	job := &jobs.ExtractDocumentJob{JobID: "j2", GCSURI: "gs://b/uploads/invoice.pdf"}
	if err := p.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := sink.inserted[0].SourceFilename; got != "invoice.pdf" {
		t.Errorf("SourceFilename = %q, want invoice.pdf", got)
	}
}

func TestHandleForwardsPlatformHint(t *testing.T) {
	docs := &fakeDocs{texts: map[string]string{
		"gs://b/statement.pdf": "no recognizable markers here",
	}}
	sink := &fakeSink{}
	tiktok := pipeline.ExtractorFunc(func(_ context.Context, _ pipeline.Input) (map[string]string, error) {
		return map[string]string{"R_paid_amount": "42.00"}, nil
	})
	reg := pipeline.NewRegistry(pipeline.ExtractorFunc(func(_ context.Context, _ pipeline.Input) (map[string]string, error) {
		return map[string]string{}, nil
	}))
	reg.Register(pipeline.RouteTikTok, tiktok)
	p := NewProcessor(&pipeline.Pipeline{Registry: reg}, docs, sink)

	job := &jobs.ExtractDocumentJob{
		JobID:        "j6",
		GCSURI:       "gs://b/statement.pdf",
		PlatformHint: pipeline.RouteTikTok,
	}
	if err := p.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := sink.inserted[0].Platform; got != "TIKTOK" {
		t.Errorf("Platform = %q, want TIKTOK from the job hint", got)
	}
	if got := sink.inserted[0].PaidAmount; got != "42.00" {
		t.Errorf("PaidAmount = %q, want 42.00 from the hinted extractor", got)
	}
}

func TestHandleFetchFailure(t *testing.T) {
	p := testProcessor(&fakeDocs{}, &fakeSink{})

	job := &jobs.ExtractDocumentJob{JobID: "j3", GCSURI: "gs://b/missing.pdf"}
	if err := p.Handle(context.Background(), job); err == nil {
		t.Fatal("Handle() should fail when the document cannot be fetched")
	}
}

func TestHandleSinkFailure(t *testing.T) {
	docs := &fakeDocs{texts: map[string]string{"gs://b/d.pdf": "text"}}
	p := testProcessor(docs, &fakeSink{err: errors.New("insert failed")})

	job := &jobs.ExtractDocumentJob{JobID: "j4", GCSURI: "gs://b/d.pdf"}
	if err := p.Handle(context.Background(), job); err == nil {
		t.Fatal("Handle() should propagate sink errors so the job retries")
	}
}

func TestHandleRejectsBadConfig(t *testing.T) {
	docs := &fakeDocs{texts: map[string]string{"gs://b/d.pdf": "text"}}
	p := testProcessor(docs, &fakeSink{})

	job := &jobs.ExtractDocumentJob{
		JobID:  "j5",
		GCSURI: "gs://b/d.pdf",
		Config: []byte("not json"),
	}
	if err := p.Handle(context.Background(), job); err == nil {
		t.Fatal("Handle() should reject malformed job config")
	}
}
