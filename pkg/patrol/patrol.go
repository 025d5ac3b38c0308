package patrol

import (
	"fmt"

	"github.com/crimson-sun/patrolaudit/internal/engine"
	"github.com/crimson-sun/patrolaudit/internal/engine/compactor"
)

// Auditor audits patrol logs under one fixed set of settings.
// Safe for concurrent use.
type Auditor struct {
	engine    *engine.Engine
	compactor *compactor.Compactor
	settings  Settings
}

// New validates settings and options and builds an Auditor.
// Invalid settings yield an error matching ErrInvalidSettings.
func New(settings Settings, opts ...Option) (*Auditor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	v, err := compactor.ParseVerbosity(o.verbosity)
	if err != nil {
		return nil, fmt.Errorf("patrol: %w", err)
	}

	var engOpts []engine.Option
	if o.logger != nil {
		engOpts = append(engOpts, engine.WithLogger(o.logger))
	}
	eng, err := engine.New(settings.toModel(), o.vocabulary.toRoster(), engOpts...)
	if err != nil {
		return nil, fmt.Errorf("patrol: %w", err)
	}

	return &Auditor{engine: eng, compactor: compactor.New(v), settings: settings}, nil
}

// Analyze audits one complete log text. Malformed lines are skipped, never
// fatal; an error means an internal precondition was broken.
func (a *Auditor) Analyze(text string) (Result, error) {
	res, err := a.engine.Analyze(text)
	if err != nil {
		return Result{}, fmt.Errorf("patrol: %w", err)
	}
	return resultFromModel(a.compactor.Compact(res)), nil
}

// Settings returns the settings the Auditor was built with.
func (a *Auditor) Settings() Settings {
	return a.settings
}

// Guards returns the recognised guard names, upper-cased, in roster order.
func (a *Auditor) Guards() []string {
	return a.engine.Roster().Guards()
}

// Analyze audits text with the default vocabulary.
func Analyze(text string, settings Settings) (Result, error) {
	a, err := New(settings)
	if err != nil {
		return Result{}, err
	}
	return a.Analyze(text)
}
