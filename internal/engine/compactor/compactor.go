package compactor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/patrolaudit/internal/model"
)

// Verbosity controls how much of each violation's evidence is kept for output.
type Verbosity int

const (
	Minimal  Verbosity = iota // drop associated events
	Standard                  // keep associated events, truncate long messages
	Full                      // keep everything
)

const (
	standardTextLen   = 200
	standardMaxEvents = 50
)

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Full:
		return "full"
	default:
		return "standard"
	}
}

// ParseVerbosity maps "minimal", "standard" or "full" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return Minimal, nil
	case "", "standard":
		return Standard, nil
	case "full":
		return Full, nil
	default:
		return Standard, fmt.Errorf("unknown verbosity %q", s)
	}
}

// Compactor trims analysis results before they reach an output.
type Compactor struct {
	Verbosity Verbosity
}

// New creates a Compactor with the given verbosity level.
func New(v Verbosity) *Compactor {
	return &Compactor{Verbosity: v}
}

// Compact returns a trimmed copy of res; res itself is never modified.
// At Standard, a round longer than standardMaxEvents keeps its last events,
// which are the ones closest to the violation.
func (c *Compactor) Compact(res model.AnalysisResult) model.AnalysisResult {
	if c.Verbosity == Full {
		return res
	}
	out := res
	out.NonConformities = make([]model.NonConformity, len(res.NonConformities))
	for i, nc := range res.NonConformities {
		switch c.Verbosity {
		case Minimal:
			nc.AssociatedEvents = nil
		default:
			evs := nc.AssociatedEvents
			if len(evs) > standardMaxEvents {
				evs = evs[len(evs)-standardMaxEvents:]
			}
			trimmed := make([]model.ClassifiedEvent, len(evs))
			for j, ev := range evs {
				ev.Text = truncate(ev.Text, standardTextLen)
				trimmed[j] = ev
			}
			nc.AssociatedEvents = trimmed
		}
		out.NonConformities[i] = nc
	}
	return out
}

// truncate cuts s to maxRunes runes, appending "..." when it cuts.
func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}
