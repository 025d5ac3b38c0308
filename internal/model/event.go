package model

// EventKind is the semantic category assigned to a log line by the classifier.
type EventKind int

const (
	Unknown EventKind = iota
	RoundStart
	CollectorDischarge
	GuardIdentified
	Checkpoint
)

var eventKindNames = [...]string{
	Unknown:            "unknown",
	RoundStart:         "round_start",
	CollectorDischarge: "collector_discharge",
	GuardIdentified:    "guard_identified",
	Checkpoint:         "checkpoint",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// MarshalText encodes the kind by name so JSON and YAML output stay readable.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Payload carries the values extracted from a classified line.
// GuardName is set for GuardIdentified; Checkpoint for Checkpoint events.
type Payload struct {
	GuardName  string `json:"guard_name,omitempty"`
	Checkpoint int    `json:"checkpoint,omitempty"`
}

// ClassifiedEvent is a RawEvent with its semantic kind. Never mutated after classification.
type ClassifiedEvent struct {
	RawEvent
	Kind    EventKind `json:"kind"`
	Payload *Payload  `json:"payload,omitempty"`
}

// CheckpointNumber returns the checkpoint number and whether the event carries one.
func (e ClassifiedEvent) CheckpointNumber() (int, bool) {
	if e.Kind != Checkpoint || e.Payload == nil {
		return 0, false
	}
	return e.Payload.Checkpoint, true
}
