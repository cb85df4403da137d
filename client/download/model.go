package download

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrDownloadCancelled     = errors.New("download cancelled")
	ErrNoKnownChecksum       = errors.New("no supported checksum")
)

// Artifact describes one item to fetch into Dest.
type Artifact struct {
	Dest string

	// Verify makes Get resolve the item's digests through Checksums
	// before any content is requested.
	Verify    bool
	Checksums func(ctx context.Context) (map[string]string, error)

	// Fetch requests the content and hands the response body to store.
	Fetch func(ctx context.Context, store Store) error
}

// Store persists a content stream. A negative contentLength disables the
// length check.
type Store func(body io.Reader, contentLength int64) error

// IntegrityError reports content that failed a length or digest check.
type IntegrityError struct {
	Dest string
	Err  error
	Want string
	Got  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %v: want %s, got %s", e.Dest, e.Err, e.Want, e.Got)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}
