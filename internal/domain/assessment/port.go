package assessment

import (
	"context"
	"io"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, a *Assessment) error
	Get(ctx context.Context, id AssessmentID) (*Assessment, error)
	Latest(ctx context.Context, limit int) ([]*Assessment, error)
	Paginate(ctx context.Context, page, pageSize int) (PaginatedResult, error)
	Summary(ctx context.Context, sinceDays int) (map[string]int, error)
}

// ResultStore port: the producer/consumer handoff slot for the most recent
// result. The uploader writes the raw JSON once; the result viewer reads it
// back verbatim.
type ResultStore interface {
	Put(ctx context.Context, raw []byte) error
	Get(ctx context.Context) ([]byte, error)
}

// ArtifactStore port (interface untuk penyimpanan upload mentah)
type ArtifactStore interface {
	UploadStream(ctx context.Context, r io.Reader, size int64, key, contentType string) (string, error)
}
