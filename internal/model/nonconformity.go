package model

import (
	"fmt"
	"time"
)

// NonConformityKind is the closed set of rule violations the reconstructor reports.
type NonConformityKind int

const (
	RoundNotStarted NonConformityKind = iota + 1
	IntervalExceeded
	SequenceIncorrect
	DischargeMissing
	MultipleStarts
	IncompleteRound
)

type kindInfo struct {
	name  string
	label string
}

var nonConformityKinds = map[NonConformityKind]kindInfo{
	RoundNotStarted:   {"round_not_started", "Round not started"},
	IntervalExceeded:  {"interval_exceeded", "Interval between checkpoints exceeded"},
	SequenceIncorrect: {"sequence_incorrect", "Incorrect checkpoint sequence"},
	DischargeMissing:  {"discharge_missing", "Collector discharge missing"},
	MultipleStarts:    {"multiple_starts", "Multiple round starts"},
	IncompleteRound:   {"incomplete_round", "Incomplete round"},
}

// NonConformityKinds lists every kind in declaration order.
func NonConformityKinds() []NonConformityKind {
	return []NonConformityKind{
		RoundNotStarted, IntervalExceeded, SequenceIncorrect,
		DischargeMissing, MultipleStarts, IncompleteRound,
	}
}

// String returns the stable machine name, e.g. "interval_exceeded".
func (k NonConformityKind) String() string {
	if info, ok := nonConformityKinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Label returns the human-readable name used in reports and charts.
func (k NonConformityKind) Label() string {
	if info, ok := nonConformityKinds[k]; ok {
		return info.label
	}
	return k.String()
}

func (k NonConformityKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseNonConformityKind maps a machine name back to its kind.
func ParseNonConformityKind(s string) (NonConformityKind, error) {
	for k, info := range nonConformityKinds {
		if info.name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown non-conformity kind %q", s)
}

// NonConformity is a detected deviation from the expected round procedure.
type NonConformity struct {
	ID               string            `json:"id"`
	Timestamp        time.Time         `json:"timestamp"`
	Guard            string            `json:"guard"`
	Kind             NonConformityKind `json:"kind"`
	Details          string            `json:"details"`
	AssociatedEvents []ClassifiedEvent `json:"associated_events,omitempty"`
}
