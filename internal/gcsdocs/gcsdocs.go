// Package gcsdocs stores and fetches document artifacts in Google Cloud
// Storage: the uploaded source file and the OCR text extracted from it. The
// pipeline itself only ever sees text; this package is how that text gets to
// it.
package gcsdocs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Store is an interface for document storage operations. It enables mocking
// in tests of the worker and CLI.
type Store interface {
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error
	FetchText(ctx context.Context, gcsURI string) (string, error)
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
	FilenameFromURI(uri string) string
}

// GCSStore is the production Store backed by Google Cloud Storage. It
// assumes Application Default Credentials are configured.
type GCSStore struct{}

// NewGCSStore creates a new GCSStore.
func NewGCSStore() *GCSStore {
	return &GCSStore{}
}

// UploadFile uploads a local file to a bucket under the given object name.
func (s *GCSStore) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("UploadFile: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := client.Bucket(bucketName).Object(objectName)
	w := obj.NewWriter(ctx)
	defer func() {
		_ = w.Close()
	}()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("UploadFile: copy file to writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalize upload: %w", err)
	}

	return nil
}

// Fetch downloads the object bytes from the given gs:// URI.
func (s *GCSStore) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := splitURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}

	return data, nil
}

// FetchText downloads the extracted text stored next to a document.
func (s *GCSStore) FetchText(ctx context.Context, gcsURI string) (string, error) {
	data, err := s.Fetch(ctx, gcsURI)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FilenameFromURI extracts the filename from a gs:// URI.
// e.g. "gs://bucket/folder/file.pdf" yields "file.pdf".
func (s *GCSStore) FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// TextObjectName is the object path convention for a document's extracted
// text: the source object path with a ".txt" suffix under text/.
func TextObjectName(sourceObject string) string {
	return "text/" + sourceObject + ".txt"
}

func splitURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}
