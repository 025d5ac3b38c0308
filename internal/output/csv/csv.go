// Package csv exports non-conformities as a spreadsheet-friendly table.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	"github.com/crimson-sun/patrolaudit/internal/output"
)

// Header is the first row written before any report.
var Header = []string{"source", "date", "guard", "type", "details"}

// Output writes one row per non-conformity. The header row is written once,
// before the first report.
type Output struct {
	mu     sync.Mutex
	w      *csv.Writer
	layout string
	header bool
}

// New creates a CSV Output. layout formats the date column; empty means
// "2006-01-02 15:04:05".
func New(w io.Writer, layout string) *Output {
	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}
	return &Output{w: csv.NewWriter(w), layout: layout}
}

func (o *Output) Write(_ context.Context, rep output.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.header {
		if err := o.w.Write(Header); err != nil {
			return fmt.Errorf("csv output: %w", err)
		}
		o.header = true
	}
	for _, nc := range rep.NonConformities {
		row := []string{rep.Source, nc.Timestamp.Format(o.layout), nc.Guard, nc.Kind.Label(), nc.Details}
		if err := o.w.Write(row); err != nil {
			return fmt.Errorf("csv output: %w", err)
		}
	}
	o.w.Flush()
	if err := o.w.Error(); err != nil {
		return fmt.Errorf("csv output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.w.Flush()
	return o.w.Error()
}
