package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/crimson-sun/patrolaudit/internal/pipeline"

// instruments are the pipeline's counters. All are safe for concurrent use.
type instruments struct {
	inputs          metric.Int64Counter
	errors          metric.Int64Counter
	dropped         metric.Int64Counter
	nonConformities metric.Int64Counter
	duration        metric.Float64Histogram
}

func newInstruments(mp metric.MeterProvider) (*instruments, error) {
	m := mp.Meter(instrumentationName)
	var (
		in  instruments
		err error
	)
	if in.inputs, err = m.Int64Counter("patrolaudit.inputs.total",
		metric.WithDescription("Log inputs analyzed"),
		metric.WithUnit("{input}")); err != nil {
		return nil, fmt.Errorf("inputs counter: %w", err)
	}
	if in.errors, err = m.Int64Counter("patrolaudit.errors.total",
		metric.WithDescription("Inputs that failed to fetch, analyze or write"),
		metric.WithUnit("{error}")); err != nil {
		return nil, fmt.Errorf("errors counter: %w", err)
	}
	if in.dropped, err = m.Int64Counter("patrolaudit.lines.dropped",
		metric.WithDescription("Log lines that did not match the line grammar"),
		metric.WithUnit("{line}")); err != nil {
		return nil, fmt.Errorf("dropped counter: %w", err)
	}
	if in.nonConformities, err = m.Int64Counter("patrolaudit.nonconformities.total",
		metric.WithDescription("Non-conformities found, by kind"),
		metric.WithUnit("{nonconformity}")); err != nil {
		return nil, fmt.Errorf("non-conformities counter: %w", err)
	}
	if in.duration, err = m.Float64Histogram("patrolaudit.analysis.duration",
		metric.WithDescription("Time to fetch and analyze one input"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("duration histogram: %w", err)
	}
	return &in, nil
}

// record adds one analyzed input's figures. Kinds are counted from the
// unfiltered result.
func (in *instruments) record(ctx context.Context, r Result, took time.Duration) {
	src := metric.WithAttributes(attribute.String("source.provider", r.Provider))
	in.inputs.Add(ctx, 1, src)
	in.dropped.Add(ctx, int64(r.Report.Dropped), src)
	in.duration.Record(ctx, took.Seconds(), src)
	for kind, n := range r.ByKind {
		in.nonConformities.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (in *instruments) fail(ctx context.Context, stage string, err error) {
	in.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("error.type", fmt.Sprintf("%T", err)),
	))
}
