package patrol

import (
	"time"

	"github.com/crimson-sun/patrolaudit/internal/model"
)

// Result is the outcome of auditing one log.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Result struct {
	NonConformities []NonConformity `json:"non_conformities"`
	CountsByType    []Count         `json:"counts_by_type"`  // descending by count
	CountsByGuard   []Count         `json:"counts_by_guard"` // descending by count
	HasRounds       bool            `json:"has_rounds"`      // false with no violations usually means a format problem
	Events          int             `json:"events"`
	Dropped         int             `json:"dropped"`
	Rounds          int             `json:"rounds"`
}

// Count is one bar of a chart.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NonConformity is one detected deviation from the round procedure.
type NonConformity struct {
	ID        string    `json:"id"`        // stable across runs over the same log
	Timestamp time.Time `json:"timestamp"` // wall-clock time as logged
	Guard     string    `json:"guard"`
	Kind      string    `json:"kind"`  // machine name, e.g. "interval_exceeded"
	Label     string    `json:"label"` // human name, e.g. "Interval between checkpoints exceeded"
	Details   string    `json:"details"`
	Events    []Event   `json:"events,omitempty"`
}

// Event is one log line that contributed to a non-conformity.
type Event struct {
	Line       int       `json:"line"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"` // round_start, collector_discharge, guard_identified, checkpoint, unknown
	Text       string    `json:"text"`
	Guard      string    `json:"guard,omitempty"`
	Checkpoint int       `json:"checkpoint,omitempty"`
}

func resultFromModel(r model.AnalysisResult) Result {
	out := Result{
		NonConformities: make([]NonConformity, len(r.NonConformities)),
		CountsByType:    countsFromModel(r.CountsByType),
		CountsByGuard:   countsFromModel(r.CountsByGuard),
		HasRounds:       r.HasRounds,
		Events:          r.Events,
		Dropped:         r.Dropped,
		Rounds:          r.Rounds,
	}
	for i, nc := range r.NonConformities {
		out.NonConformities[i] = NonConformity{
			ID:        nc.ID,
			Timestamp: nc.Timestamp,
			Guard:     nc.Guard,
			Kind:      nc.Kind.String(),
			Label:     nc.Kind.Label(),
			Details:   nc.Details,
			Events:    eventsFromModel(nc.AssociatedEvents),
		}
	}
	return out
}

func countsFromModel(items []model.CountItem) []Count {
	out := make([]Count, len(items))
	for i, it := range items {
		out[i] = Count{Name: it.Name, Count: it.Count}
	}
	return out
}

func eventsFromModel(evs []model.ClassifiedEvent) []Event {
	if len(evs) == 0 {
		return nil
	}
	out := make([]Event, len(evs))
	for i, ev := range evs {
		out[i] = Event{
			Line:      ev.Line,
			Timestamp: ev.Timestamp,
			Kind:      ev.Kind.String(),
			Text:      ev.Text,
		}
		if ev.Payload != nil {
			out[i].Guard = ev.Payload.GuardName
			out[i].Checkpoint = ev.Payload.Checkpoint
		}
	}
	return out
}
