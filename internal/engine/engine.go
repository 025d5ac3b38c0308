package engine

import (
	"fmt"
	"log/slog"

	"github.com/crimson-sun/patrolaudit/internal/engine/aggregate"
	"github.com/crimson-sun/patrolaudit/internal/engine/classifier"
	"github.com/crimson-sun/patrolaudit/internal/engine/roster"
	"github.com/crimson-sun/patrolaudit/internal/engine/rounds"
	"github.com/crimson-sun/patrolaudit/internal/engine/tokenizer"
	"github.com/crimson-sun/patrolaudit/internal/model"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for dropped-line warnings. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Engine orchestrates the tokenize → classify → reconstruct → aggregate pipeline.
// An Engine is immutable after New and safe for concurrent use.
type Engine struct {
	settings   model.Settings
	roster     *roster.Roster
	tokenizer  *tokenizer.Tokenizer
	classifier *classifier.Classifier
	rounds     *rounds.Reconstructor
}

// New validates settings and vocabulary and wires the four stages.
func New(settings model.Settings, vocab roster.Vocabulary, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rst, err := roster.New(vocab)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	rec, err := rounds.New(settings, rst.UnknownGuard())
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	tokOpts := []tokenizer.Option{tokenizer.WithHeaderPrefixes(rst.HeaderPrefixes())}
	if o.logger != nil {
		tokOpts = append(tokOpts, tokenizer.WithLogger(o.logger))
	}

	return &Engine{
		settings:   settings,
		roster:     rst,
		tokenizer:  tokenizer.New(settings.Order(), tokOpts...),
		classifier: classifier.New(rst),
		rounds:     rec,
	}, nil
}

// Analyze audits one complete log text. Bad log content never fails; an
// error means a broken internal precondition.
func (e *Engine) Analyze(text string) (model.AnalysisResult, error) {
	events, dropped := e.Events(text)

	found, err := e.rounds.Reconstruct(events)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("engine: %w", err)
	}

	res := aggregate.Aggregate(events, found)
	res.Dropped = dropped
	return res, nil
}

// Events runs only the first two stages, returning the time-ordered
// classified events and the number of dropped lines.
func (e *Engine) Events(text string) ([]model.ClassifiedEvent, int) {
	raws, dropped := e.tokenizer.Tokenize(text)
	return e.classifier.ClassifyAll(raws), dropped
}

// Settings returns the settings the engine was built with.
func (e *Engine) Settings() model.Settings { return e.settings }

// Roster returns the engine's guard roster and phrases.
func (e *Engine) Roster() *roster.Roster { return e.roster }
