package media

import (
	"context"
	"io"
)

// Store uploads reader-visible media and returns the public URL where the
// uploaded asset is served from.
type Store interface {
	UploadImage(ctx context.Context, filename string, body io.Reader) (string, error)
	UploadVideo(ctx context.Context, filename string, body io.Reader) (string, error)
}
