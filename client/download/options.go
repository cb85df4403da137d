package download

import (
	"errors"
	"hash"
)

// Option defines optional settings for [Get].
type Option func(*options) error

type options struct {
	digest       *digest
	progress     bool
	skipExisting bool
}

// WithChecksum verifies the content against want, the hex digest
// produced by h. It takes precedence over the digests resolved for
// [Artifact.Verify].
func WithChecksum(h hash.Hash, want string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}
		if want == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.digest = &digest{algo: "custom", hash: h, want: want}
		return nil
	}
}

// WithChecksums verifies the content against the strongest digest in
// checksums, keyed by algorithm name as the storage API reports them.
func WithChecksums(checksums map[string]string) Option {
	return func(opts *options) error {
		d, err := strongest(checksums)
		if err != nil {
			return err
		}

		opts.digest = d
		return nil
	}
}

// WithProgress logs throughput through the logger given to [Get].
func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}

// WithSkipExisting makes [Get] return nil without any request when the
// destination already exists.
func WithSkipExisting() Option {
	return func(opts *options) error {
		opts.skipExisting = true
		return nil
	}
}
