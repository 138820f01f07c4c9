package storage

import (
	"context"
	"io"
)

// MediaStore persists an uploaded file and returns a durable URL. The rest
// of the system only ever stores the returned URL string.
type MediaStore interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}
