// Package pipeline runs log inputs through source, engine, filter and output.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/patrolaudit/internal/connector"
	"github.com/crimson-sun/patrolaudit/internal/filter"
	"github.com/crimson-sun/patrolaudit/internal/model"
	"github.com/crimson-sun/patrolaudit/internal/output"
)

// Analyzer audits one complete log text. *engine.Engine satisfies it.
type Analyzer interface {
	Analyze(text string) (model.AnalysisResult, error)
}

// Resolver returns the Source for a provider name.
type Resolver func(provider string) (connector.Source, error)

// Result is one input's outcome.
type Result struct {
	Provider string
	Report   output.Report // filtered
	Total    int            // non-conformities before filtering
	ByKind   map[string]int // unfiltered counts by kind name
}

// NoPatrolData reports whether the log held neither rounds nor violations,
// which usually means the input is not in the expected format.
func (r Result) NoPatrolData() bool {
	return !r.Report.HasRounds && r.Total == 0
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFilter narrows every report to matching non-conformities.
func WithFilter(c filter.Criteria) Option {
	return func(p *Pipeline) { p.criteria = c }
}

// WithConcurrency bounds how many inputs AnalyzeAll fetches and analyzes
// at once. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = 1
		}
		p.concurrency = n
	}
}

// WithResolver replaces the connector registry lookup.
func WithResolver(r Resolver) Option {
	return func(p *Pipeline) { p.resolve = r }
}

// WithMeterProvider sets where metrics are recorded. Default: otel global.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Pipeline) { p.meterProvider = mp }
}

// WithTracerProvider sets where spans are recorded. Default: otel global.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(instrumentationName) }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline connects sources, an analyzer, and an output.
type Pipeline struct {
	analyzer      Analyzer
	output        output.Output
	criteria      filter.Criteria
	concurrency   int
	resolve       Resolver
	meterProvider metric.MeterProvider
	metrics       *instruments
	tracer        trace.Tracer
	logger        *slog.Logger
}

// New creates a Pipeline from the given components.
func New(a Analyzer, out output.Output, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		analyzer:    a,
		output:      out,
		concurrency: 4,
		resolve:     registryResolver,
		tracer:      otel.Tracer(instrumentationName),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.meterProvider == nil {
		p.meterProvider = otel.GetMeterProvider()
	}
	m, err := newInstruments(p.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p.metrics = m
	return p, nil
}

func registryResolver(provider string) (connector.Source, error) {
	ctor, err := connector.Get(provider)
	if err != nil {
		return nil, err
	}
	return ctor(), nil
}

// Run analyzes one input and writes its report.
func (p *Pipeline) Run(ctx context.Context, cfg connector.SourceConfig) (Result, error) {
	res, err := p.analyze(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	if err := p.write(ctx, res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// AnalyzeAll fetches and analyzes the inputs concurrently, then writes the
// reports in input order. The first failure cancels the remaining inputs;
// nothing is written unless every input succeeds.
func (p *Pipeline) AnalyzeAll(ctx context.Context, cfgs []connector.SourceConfig) ([]Result, error) {
	results := make([]Result, len(cfgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, cfg := range cfgs {
		g.Go(func() error {
			res, err := p.analyze(gctx, cfg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		if err := p.write(ctx, res); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}

func (p *Pipeline) analyze(ctx context.Context, cfg connector.SourceConfig) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.analyze", trace.WithAttributes(
		attribute.String("source.provider", cfg.Provider),
		attribute.String("source.location", cfg.Label()),
	))
	defer span.End()
	start := time.Now()

	fail := func(stage string, err error) (Result, error) {
		err = fmt.Errorf("pipeline %s %s: %w", stage, cfg.Label(), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		p.metrics.fail(ctx, stage, err)
		return Result{}, err
	}

	src, err := p.resolve(cfg.Provider)
	if err != nil {
		return fail("source", err)
	}
	text, err := src.Fetch(ctx, cfg)
	if err != nil {
		return fail("fetch", err)
	}
	ar, err := p.analyzer.Analyze(text)
	if err != nil {
		return fail("analyze", err)
	}

	byKind := make(map[string]int)
	for _, nc := range ar.NonConformities {
		byKind[nc.Kind.String()]++
	}
	res := Result{
		Provider: cfg.Provider,
		Report:   output.Report{Source: cfg.Label(), AnalysisResult: filter.Apply(ar, p.criteria)},
		Total:    len(ar.NonConformities),
		ByKind:   byKind,
	}

	p.metrics.record(ctx, res, time.Since(start))
	span.SetAttributes(
		attribute.Int("events", ar.Events),
		attribute.Int("nonconformities", res.Total),
	)
	p.logger.Info("input analyzed",
		"source", cfg.Label(),
		"events", ar.Events,
		"dropped", ar.Dropped,
		"rounds", ar.Rounds,
		"non_conformities", res.Total,
		"reported", len(res.Report.NonConformities),
	)
	if res.NoPatrolData() {
		p.logger.Warn("no patrol rounds found; check the log format", "source", cfg.Label())
	}
	return res, nil
}

func (p *Pipeline) write(ctx context.Context, res Result) error {
	if err := p.output.Write(ctx, res.Report); err != nil {
		p.metrics.fail(ctx, "output", err)
		return fmt.Errorf("pipeline output: %w", err)
	}
	return nil
}
