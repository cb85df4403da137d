package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const meterInterval = time.Second

// meter counts the bytes written through it and reports throughput at
// most once per meterInterval.
type meter struct {
	ctx     context.Context
	w       io.Writer
	logger  *slog.Logger
	dest    string
	size    int64
	written int64
	started time.Time
	next    time.Time
}

func newMeter(ctx context.Context, w io.Writer, logger *slog.Logger, dest string, size int64) *meter {
	now := time.Now()
	return &meter{ctx: ctx, w: w, logger: logger, dest: dest, size: size, started: now, next: now.Add(meterInterval)}
}

func (m *meter) Write(p []byte) (int, error) {
	n, err := m.w.Write(p)
	m.written += int64(n)

	if now := time.Now(); !now.Before(m.next) {
		m.next = now.Add(meterInterval)
		m.report("download progress")
	}

	return n, err
}

func (m *meter) report(msg string) {
	attrs := []slog.Attr{
		slog.String("dest", m.dest),
		slog.Int64("bytes", m.written),
	}
	if m.size >= 0 {
		attrs = append(attrs, slog.Int64("size", m.size))
	}
	if secs := time.Since(m.started).Seconds(); secs > 0 {
		attrs = append(attrs, slog.String("rate", fmt.Sprintf("%.2f MiB/s", float64(m.written)/secs/(1<<20))))
	}

	m.logger.LogAttrs(m.ctx, slog.LevelInfo, msg, attrs...)
}
