package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/patrolaudit/internal/engine/compactor"
	"github.com/crimson-sun/patrolaudit/internal/output"
)

// Output writes JSON-encoded reports to stdout, one document per report.
type Output struct {
	enc       *json.Encoder
	verbosity compactor.Verbosity
}

// Option configures a stdout Output.
type Option func(*settings)

type settings struct {
	w io.Writer
}

// WithWriter redirects output away from os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(s *settings) { s.w = w }
}

// New creates a new stdout Output with verbosity-aware trimming
// and optional pretty-printed JSON.
func New(verbosity compactor.Verbosity, pretty bool, opts ...Option) *Output {
	s := settings{w: os.Stdout}
	for _, opt := range opts {
		opt(&s)
	}
	enc := json.NewEncoder(s.w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, verbosity: verbosity}
}

func (o *Output) Write(_ context.Context, rep output.Report) error {
	formatted := output.FormatReport(rep, o.verbosity)
	if err := o.enc.Encode(formatted); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
