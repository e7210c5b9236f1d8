// Package source supplies raw annotations to the pipeline. The
// pipeline core never fetches anything itself; it consumes whatever a
// Source hands it, and a Source that fails yields an empty batch
// rather than an error reaching the pipeline (fail-soft).
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/redlinehq/redline/internal/types"
)

// Source fetches the raw annotations for a document
type Source interface {
	// Fetch returns all annotations attached to a document. Resolved
	// threads are included; filtering them is the pipeline's job.
	Fetch(ctx context.Context, documentID string) ([]*types.Annotation, error)
}

// FetchSoft wraps Source.Fetch with the fail-soft policy: on any
// fetch error the pipeline proceeds with an empty batch, and the
// failure comes back as a warning string for the caller's report.
func FetchSoft(ctx context.Context, src Source, documentID string) ([]*types.Annotation, string) {
	annotations, err := src.Fetch(ctx, documentID)
	if err != nil {
		log.Printf("[SOURCE] fetch failed for document %s: %v (proceeding with empty batch)", documentID, err)
		return nil, fmt.Sprintf("annotation fetch failed: %v", err)
	}
	return annotations, ""
}

// batchFile is the on-disk JSON shape: either a bare array of
// annotations or an object wrapping one.
type batchFile struct {
	DocumentID  string              `json:"document_id,omitempty"`
	Annotations []*types.Annotation `json:"annotations"`
}

// FileSource reads annotation batches exported as JSON files. Used by
// the CLI; a hosting service would swap in a Source backed by its own
// annotation store.
type FileSource struct {
	Path string
}

// Compile-time check that FileSource implements Source
var _ Source = (*FileSource)(nil)

// Fetch implements Source. The documentID is matched against the
// file's document_id when the file declares one; an empty documentID
// accepts any file.
func (f *FileSource) Fetch(ctx context.Context, documentID string) ([]*types.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation file: %w", err)
	}
	return decode(data, documentID)
}

// ReaderSource decodes one annotation batch from an io.Reader, for
// piping batches into the CLI.
type ReaderSource struct {
	Reader io.Reader
}

// Compile-time check that ReaderSource implements Source
var _ Source = (*ReaderSource)(nil)

// Fetch implements Source
func (r *ReaderSource) Fetch(ctx context.Context, documentID string) ([]*types.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation stream: %w", err)
	}
	return decode(data, documentID)
}

func decode(data []byte, documentID string) ([]*types.Annotation, error) {
	// Try the bare-array shape first, then the wrapped object.
	var list []*types.Annotation
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var batch batchFile
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse annotation batch: %w", err)
	}
	if documentID != "" && batch.DocumentID != "" && batch.DocumentID != documentID {
		return nil, fmt.Errorf("batch is for document %s, requested %s", batch.DocumentID, documentID)
	}
	return batch.Annotations, nil
}
