// Package file keeps an append-only NDJSON archive of audit reports.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crimson-sun/patrolaudit/internal/engine/compactor"
	"github.com/crimson-sun/patrolaudit/internal/output"
)

const (
	defaultBufSize = 64 * 1024
	defaultKeep    = 5
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the archive size in bytes past which it is rotated.
// 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithKeep sets how many rotated archives survive, as {path}.1 (newest)
// to {path}.n. Default: 5.
func WithKeep(n int) Option {
	return func(o *Output) {
		if n > 0 {
			o.keep = n
		}
	}
}

// WithBufSize sets the write buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// WithClock sets the source of archived_at stamps. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Output) { o.now = now }
}

// record is one archive line: the report plus when it was archived.
type record struct {
	ArchivedAt time.Time `json:"archived_at"`
	output.Report
}

// Output appends one JSON record per report.
type Output struct {
	mu        sync.Mutex
	path      string
	verbosity compactor.Verbosity
	maxSize   int64
	keep      int
	bufSize   int
	now       func() time.Time

	f       *os.File
	w       *bufio.Writer
	written int64
}

// New opens (or creates, with parent directories) the archive at path.
// Existing content is kept and counts toward the rotation size.
func New(path string, verbosity compactor.Verbosity, opts ...Option) (*Output, error) {
	o := &Output{
		path:      path,
		verbosity: verbosity,
		keep:      defaultKeep,
		bufSize:   defaultBufSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file output: %w", err)
	}
	if err := o.open(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write appends rep as one line. A record larger than the rotation size
// still lands whole in a single archive.
func (o *Output) Write(_ context.Context, rep output.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, err := json.Marshal(record{
		ArchivedAt: o.now().UTC(),
		Report:     output.FormatReport(rep, o.verbosity),
	})
	if err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}
	data = append(data, '\n')

	if o.maxSize > 0 && o.written > 0 && o.written+int64(len(data)) > o.maxSize {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("file output: rotate: %w", err)
		}
	}

	n, err := o.w.Write(data)
	o.written += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	return nil
}

// Close flushes and syncs the archive, then closes it.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closeFile()
}

func (o *Output) open() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: stat %s: %w", o.path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	o.written = info.Size()
	return nil
}

func (o *Output) closeFile() error {
	err := o.w.Flush()
	if err == nil {
		err = o.f.Sync()
	}
	if cerr := o.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("file output: close: %w", err)
	}
	return nil
}

// rotate moves the live archive to {path}.1, shifting older generations up
// and dropping the one past keep, then reopens an empty archive.
func (o *Output) rotate() error {
	if err := o.closeFile(); err != nil {
		return err
	}
	if err := os.Remove(o.generation(o.keep)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for i := o.keep - 1; i >= 1; i-- {
		if err := os.Rename(o.generation(i), o.generation(i+1)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := os.Rename(o.path, o.generation(1)); err != nil {
		return err
	}
	return o.open()
}

func (o *Output) generation(n int) string {
	return fmt.Sprintf("%s.%d", o.path, n)
}
