// Package rounds reconstructs patrol rounds from classified events and
// reports every rule violation it finds along the way.
package rounds

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/patrolaudit/internal/model"
)

// ErrUnordered is returned when events are not in ascending timestamp order.
// The tokenizer guarantees ordering, so this signals a caller bug.
var ErrUnordered = errors.New("rounds: events out of timestamp order")

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("patrolaudit/non-conformity"))

// window is a dinner interval in minutes since midnight, bounds inclusive.
type window struct {
	start, end model.Clock
}

func (w window) covers(c model.Clock) bool {
	if w.end < w.start {
		return c >= w.start || c <= w.end
	}
	return c >= w.start && c <= w.end
}

// Reconstructor applies the round rules for one set of settings.
// It holds no per-scan state and is safe for concurrent use.
type Reconstructor struct {
	settings     model.Settings
	dinner       []window
	unknownGuard string
	stampLayout  string
}

// New validates the settings and prepares the dinner windows.
// unknownGuard is attributed to violations seen before any guard is identified.
func New(settings model.Settings, unknownGuard string) (*Reconstructor, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	r := &Reconstructor{
		settings:     settings,
		unknownGuard: unknownGuard,
		stampLayout:  "01/02/2006 15:04:05",
	}
	if settings.Order() == model.DayMonthYear {
		r.stampLayout = "02/01/2006 15:04:05"
	}
	for _, iv := range settings.DinnerIntervals {
		start, _ := model.ParseClock(iv.Start)
		end, _ := model.ParseClock(iv.End)
		r.dinner = append(r.dinner, window{start: start, end: end})
	}
	return r, nil
}

// scan is the accumulator threaded through every step of one reconstruction.
type scan struct {
	inRound bool
	guard   string
	buffer  []model.ClassifiedEvent
	found   []model.NonConformity
}

// Reconstruct runs the state machine over events, which must be sorted by timestamp.
func (r *Reconstructor) Reconstruct(events []model.ClassifiedEvent) ([]model.NonConformity, error) {
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: line %d (%s) follows line %d (%s)", ErrUnordered,
				events[i].Line, events[i].Timestamp.Format(time.DateTime),
				events[i-1].Line, events[i-1].Timestamp.Format(time.DateTime))
		}
	}

	s := scan{guard: r.unknownGuard}
	for i, ev := range events {
		var next *model.ClassifiedEvent
		if i+1 < len(events) {
			next = &events[i+1]
		}
		s = r.step(s, ev, next)
	}
	return r.finish(s).found, nil
}

// step advances the scan by one event. next is the following event, or nil.
func (r *Reconstructor) step(s scan, ev model.ClassifiedEvent, next *model.ClassifiedEvent) scan {
	switch ev.Kind {
	case model.GuardIdentified:
		if ev.Payload != nil {
			s.guard = ev.Payload.GuardName
		}
		if s.inRound {
			s.buffer = append(s.buffer, ev)
		}

	case model.RoundStart:
		if s.inRound {
			at := ev.Timestamp
			if len(s.buffer) > 0 {
				at = s.buffer[0].Timestamp
			}
			s = r.checkComplete(s, "previous round interrupted", at)
			s = s.emit(model.MultipleStarts, ev.Timestamp,
				fmt.Sprintf("new round started before the previous one (started at %s) was finished",
					r.roundStart(s, ev).Format(time.TimeOnly)),
				snapshot(s.buffer, ev))
		}
		s.inRound = true
		s.buffer = []model.ClassifiedEvent{ev}
		if next != nil && next.Kind == model.GuardIdentified && next.Payload != nil {
			s.guard = next.Payload.GuardName
		}

	case model.Checkpoint:
		n, _ := ev.CheckpointNumber()
		if !s.inRound {
			return s.emit(model.RoundNotStarted, ev.Timestamp,
				fmt.Sprintf("checkpoint #%d recorded outside an active round", n),
				snapshot(s.buffer, ev))
		}
		if prev, ok := lastCheckpoint(s.buffer); ok {
			pn, _ := prev.CheckpointNumber()
			if n != pn+1 {
				s = s.emit(model.SequenceIncorrect, ev.Timestamp,
					fmt.Sprintf("incorrect sequence: jumped from checkpoint %d to checkpoint %d", pn, n),
					snapshot(s.buffer, ev))
			}
			elapsed := ev.Timestamp.Sub(prev.Timestamp).Minutes()
			if elapsed > r.settings.MaxIntervalMinutes && !r.inDinner(ev.Timestamp) {
				s = s.emit(model.IntervalExceeded, ev.Timestamp,
					fmt.Sprintf("interval of %.0f min between checkpoint %d and %d (limit: %s min); long pause outside dinner interval",
						elapsed, pn, n, strconv.FormatFloat(r.settings.MaxIntervalMinutes, 'f', -1, 64)),
					snapshot(s.buffer, ev))
			}
		}
		s.buffer = append(s.buffer, ev)

	case model.CollectorDischarge:
		if !s.inRound {
			return s
		}
		s.buffer = append(s.buffer, ev)
		s = r.checkComplete(s, "round finished", ev.Timestamp)
		s.inRound = false
		s.buffer = nil

	default:
		if s.inRound {
			s.buffer = append(s.buffer, ev)
		}
	}
	return s
}

// finish reconciles a round still open at end of stream.
func (r *Reconstructor) finish(s scan) scan {
	if !s.inRound || len(s.buffer) == 0 {
		return s
	}
	last := s.buffer[len(s.buffer)-1]
	s = r.checkComplete(s, "round not finished", last.Timestamp)
	s = s.emit(model.DischargeMissing, last.Timestamp,
		fmt.Sprintf("round started at %s has no collector discharge record",
			s.buffer[0].Timestamp.Format(r.stampLayout)),
		snapshot(s.buffer))
	s.inRound = false
	s.buffer = nil
	return s
}

// checkComplete emits IncompleteRound when the buffer holds fewer
// checkpoints than the configured total.
func (r *Reconstructor) checkComplete(s scan, prefix string, at time.Time) scan {
	count, last := 0, -1
	for _, ev := range s.buffer {
		if n, ok := ev.CheckpointNumber(); ok {
			count++
			last = n
		}
	}
	if count >= r.settings.TotalLocations {
		return s
	}
	details := fmt.Sprintf("%s with %d of %d checkpoints; none visited.", prefix, count, r.settings.TotalLocations)
	if count > 0 {
		details = fmt.Sprintf("%s with %d of %d checkpoints; last checkpoint: #%d.", prefix, count, r.settings.TotalLocations, last)
	}
	return s.emit(model.IncompleteRound, at, details, snapshot(s.buffer))
}

// roundStart is the timestamp of the open round's first event.
func (r *Reconstructor) roundStart(s scan, fallback model.ClassifiedEvent) time.Time {
	if len(s.buffer) > 0 {
		return s.buffer[0].Timestamp
	}
	return fallback.Timestamp
}

func (r *Reconstructor) inDinner(ts time.Time) bool {
	c := model.Clock(ts.Hour()*60 + ts.Minute())
	for _, w := range r.dinner {
		if w.covers(c) {
			return true
		}
	}
	return false
}

// emit appends a violation attributed to the current guard. The ID is a
// name-based UUID over (timestamp, kind, ordinal), so repeated runs agree.
func (s scan) emit(kind model.NonConformityKind, at time.Time, details string, events []model.ClassifiedEvent) scan {
	ordinal := len(s.found)
	name := fmt.Sprintf("%s|%s|%d", at.Format(time.RFC3339), kind, ordinal)
	s.found = append(s.found, model.NonConformity{
		ID:               uuid.NewSHA1(idNamespace, []byte(name)).String(),
		Timestamp:        at,
		Guard:            s.guard,
		Kind:             kind,
		Details:          details,
		AssociatedEvents: events,
	})
	return s
}

func lastCheckpoint(buf []model.ClassifiedEvent) (model.ClassifiedEvent, bool) {
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i].Kind == model.Checkpoint {
			return buf[i], true
		}
	}
	return model.ClassifiedEvent{}, false
}

// snapshot copies buf and appends extra, so later buffer changes never leak
// into a reported violation.
func snapshot(buf []model.ClassifiedEvent, extra ...model.ClassifiedEvent) []model.ClassifiedEvent {
	out := make([]model.ClassifiedEvent, 0, len(buf)+len(extra))
	out = append(out, buf...)
	return append(out, extra...)
}
