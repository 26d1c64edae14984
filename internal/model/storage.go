package model

import (
	"context"
	"io"
)

// RecordArchive receives pruned revocation records as one object per prune run.
type RecordArchive interface {
	Archive(ctx context.Context, name string, body io.Reader) error
}
