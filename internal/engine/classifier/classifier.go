package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/crimson-sun/patrolaudit/internal/engine/roster"
	"github.com/crimson-sun/patrolaudit/internal/model"
)

var checkpointRe = regexp.MustCompile(`LOCAL\s*(\d+)|(\d+)\s*LOCAL`)

// rule is one entry of the priority list. match receives folded text and
// reports whether the rule applies, with the payload to attach.
type rule struct {
	kind  model.EventKind
	match func(folded string) (*model.Payload, bool)
}

// Classifier assigns each raw event exactly one kind. The first matching rule wins.
type Classifier struct {
	rules []rule
}

// New builds the rule list from the roster's phrases and guard names.
func New(r *roster.Roster) *Classifier {
	start, discharge := r.StartPhrase(), r.DischargePhrase()
	return &Classifier{rules: []rule{
		{model.RoundStart, func(s string) (*model.Payload, bool) {
			return nil, strings.Contains(s, start)
		}},
		{model.CollectorDischarge, func(s string) (*model.Payload, bool) {
			return nil, strings.Contains(s, discharge)
		}},
		{model.GuardIdentified, func(s string) (*model.Payload, bool) {
			name, ok := r.Guard(s)
			if !ok {
				return nil, false
			}
			return &model.Payload{GuardName: name}, true
		}},
		{model.Checkpoint, matchCheckpoint},
	}}
}

// Classify maps one raw event to its classified form. Unmatched text is Unknown.
func (c *Classifier) Classify(ev model.RawEvent) model.ClassifiedEvent {
	folded := roster.Fold(ev.Text)
	for _, r := range c.rules {
		if p, ok := r.match(folded); ok {
			return model.ClassifiedEvent{RawEvent: ev, Kind: r.kind, Payload: p}
		}
	}
	return model.ClassifiedEvent{RawEvent: ev, Kind: model.Unknown}
}

// ClassifyAll classifies a slice, preserving order and length.
func (c *Classifier) ClassifyAll(events []model.RawEvent) []model.ClassifiedEvent {
	out := make([]model.ClassifiedEvent, len(events))
	for i, ev := range events {
		out[i] = c.Classify(ev)
	}
	return out
}

func matchCheckpoint(s string) (*model.Payload, bool) {
	m := checkpointRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil, false
	}
	return &model.Payload{Checkpoint: n}, true
}
