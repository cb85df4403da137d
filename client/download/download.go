package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

const stagePattern = ".artifactory-dl-*"

// Get downloads a into a.Dest. With [WithSkipExisting] and an existing
// destination it returns before resolving checksums or fetching. With
// a.Verify set, the strongest digest from a.Checksums is checked unless
// an explicit [WithChecksum] was given. Content is staged next to the
// destination and renamed into place only after every check passes.
func Get(ctx context.Context, a Artifact, logger *slog.Logger, optFns ...Option) error {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return fmt.Errorf("applying option: %w", err)
		}
	}

	if opts.skipExisting {
		if _, err := os.Stat(a.Dest); err == nil {
			logger.Info("skipping existing file", "dest", a.Dest)
			return nil
		}
	}

	if a.Verify {
		if a.Checksums == nil {
			return errors.New("verify requires a checksum source")
		}
		sums, err := a.Checksums(ctx)
		if err != nil {
			return err
		}
		if opts.digest == nil {
			d, err := strongest(sums)
			if err != nil {
				return err
			}
			opts.digest = d
		}
	}

	s := sink{ctx: ctx, dest: a.Dest, logger: logger, opts: opts}

	return a.Fetch(ctx, s.store)
}

// sink writes one content stream to a staged file.
type sink struct {
	ctx    context.Context
	dest   string
	logger *slog.Logger
	opts   options
}

func (s sink) store(body io.Reader, contentLength int64) error {
	st, err := stage(s.dest)
	if err != nil {
		return err
	}

	var w io.Writer = st.f
	if s.opts.digest != nil {
		w = io.MultiWriter(w, s.opts.digest)
	}

	var m *meter
	if s.opts.progress {
		m = newMeter(s.ctx, w, s.logger, s.dest, contentLength)
		w = m
	}

	n, err := io.Copy(w, &contextReader{ctx: s.ctx, r: body})
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
	default:
		err = fmt.Errorf("copying body: %w", err)
	}

	if err == nil && contentLength >= 0 && n != contentLength {
		err = &IntegrityError{
			Dest: s.dest,
			Err:  ErrContentLengthMismatch,
			Want: strconv.FormatInt(contentLength, 10) + " bytes",
			Got:  strconv.FormatInt(n, 10) + " bytes",
		}
	}
	if err == nil && s.opts.digest != nil {
		err = s.opts.digest.check(s.dest)
	}
	if err != nil {
		st.discard(s.logger)
		return err
	}

	if err := st.commit(s.dest); err != nil {
		st.discard(s.logger)
		return err
	}
	if m != nil {
		m.report("download finished")
	}

	return nil
}

// staged is a temp file in the destination's directory.
type staged struct {
	f *os.File
}

func stage(dest string) (*staged, error) {
	f, err := os.CreateTemp(filepath.Dir(dest), stagePattern)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return &staged{f: f}, nil
}

func (st *staged) commit(dest string) error {
	if err := st.f.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := st.f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(st.f.Name(), dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (st *staged) discard(logger *slog.Logger) {
	if err := st.f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Error("closing temp file", "error", err)
	}
	if err := os.Remove(st.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error("removing temp file", "error", err)
	}
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
