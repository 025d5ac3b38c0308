package patrol

import (
	"log/slog"

	"github.com/crimson-sun/patrolaudit/internal/engine/roster"
)

// Vocabulary is the fixed text lines are matched against. Matching ignores
// case and accents.
type Vocabulary struct {
	StartPhrase     string   // marks the start of a round
	DischargePhrase string   // marks the collector discharge that ends a round
	Guards          []string // recognised guard names
	HeaderPrefixes  []string // lines starting with these are skipped silently
	UnknownGuard    string   // attributed before any guard is identified
}

// DefaultVocabulary returns the built-in phrases and guard roster.
func DefaultVocabulary() Vocabulary {
	v := roster.DefaultVocabulary()
	return Vocabulary{
		StartPhrase:     v.StartPhrase,
		DischargePhrase: v.DischargePhrase,
		Guards:          append([]string(nil), v.Guards...),
		HeaderPrefixes:  append([]string(nil), v.HeaderPrefixes...),
		UnknownGuard:    v.UnknownGuard,
	}
}

func (v Vocabulary) toRoster() roster.Vocabulary {
	return roster.Vocabulary{
		StartPhrase:     v.StartPhrase,
		DischargePhrase: v.DischargePhrase,
		Guards:          v.Guards,
		HeaderPrefixes:  v.HeaderPrefixes,
		UnknownGuard:    v.UnknownGuard,
	}
}

type options struct {
	vocabulary Vocabulary
	logger     *slog.Logger
	verbosity  string
}

// Option configures an Auditor.
type Option func(*options)

// WithVocabulary replaces the built-in phrases and guard roster.
func WithVocabulary(v Vocabulary) Option {
	return func(o *options) {
		o.vocabulary = v
	}
}

// WithLogger sets the logger that receives dropped-line warnings.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithVerbosity sets how much evidence each non-conformity keeps:
// "minimal" (none), "standard" (truncated), "full". Default: "full".
func WithVerbosity(v string) Option {
	return func(o *options) {
		o.verbosity = v
	}
}

func defaultOptions() options {
	return options{
		vocabulary: DefaultVocabulary(),
		verbosity:  "full",
	}
}
