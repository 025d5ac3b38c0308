// Package filter narrows an analysis down to the non-conformities of one
// guard, shift or calendar day.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/crimson-sun/patrolaudit/internal/engine/aggregate"
	"github.com/crimson-sun/patrolaudit/internal/engine/roster"
	"github.com/crimson-sun/patrolaudit/internal/model"
)

// Shift selects non-conformities by hour of day.
type Shift int

const (
	AnyShift Shift = iota
	Day            // 06:00 to 17:59
	Night          // 18:00 to 05:59
)

const (
	dayStart = 6
	dayEnd   = 18
)

func (s Shift) String() string {
	switch s {
	case Day:
		return "day"
	case Night:
		return "night"
	default:
		return "all"
	}
}

// ParseShift maps "day", "night", "all" or "" to a Shift.
func ParseShift(s string) (Shift, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return AnyShift, nil
	case "day":
		return Day, nil
	case "night":
		return Night, nil
	default:
		return AnyShift, fmt.Errorf("unknown shift %q (want day, night or all)", s)
	}
}

func (s Shift) covers(t time.Time) bool {
	h := t.Hour()
	switch s {
	case Day:
		return h >= dayStart && h < dayEnd
	case Night:
		return h >= dayEnd || h < dayStart
	default:
		return true
	}
}

// Criteria is a conjunction of filters. Zero values match everything.
type Criteria struct {
	Guard string // compared case-insensitively
	Shift Shift
	Date  time.Time // only the calendar day is compared
}

// ParseDate parses a "YYYY-MM-DD" date filter. Empty yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date filter: %w", err)
	}
	return d, nil
}

// IsZero reports whether c matches everything.
func (c Criteria) IsZero() bool {
	return c.Guard == "" && c.Shift == AnyShift && c.Date.IsZero()
}

// Match reports whether nc satisfies every set criterion.
func (c Criteria) Match(nc model.NonConformity) bool {
	if c.Guard != "" && roster.Fold(c.Guard) != roster.Fold(nc.Guard) {
		return false
	}
	if !c.Date.IsZero() {
		y, m, d := nc.Timestamp.Date()
		cy, cm, cd := c.Date.Date()
		if y != cy || m != cm || d != cd {
			return false
		}
	}
	return c.Shift.covers(nc.Timestamp)
}

// Apply returns a copy of res holding only matching non-conformities, with
// both count tables recomputed over that subset. Event and round statistics
// describe the whole log and are kept.
func Apply(res model.AnalysisResult, c Criteria) model.AnalysisResult {
	if c.IsZero() {
		return res
	}
	kept := []model.NonConformity{}
	for _, nc := range res.NonConformities {
		if c.Match(nc) {
			kept = append(kept, nc)
		}
	}
	res.NonConformities = kept
	res.CountsByType = aggregate.ByType(kept)
	res.CountsByGuard = aggregate.ByGuard(kept)
	return res
}

// Guards lists the distinct guards named in res, in first-occurrence order.
func Guards(res model.AnalysisResult) []string {
	seen := make(map[string]bool)
	var out []string
	for _, nc := range res.NonConformities {
		if !seen[nc.Guard] {
			seen[nc.Guard] = true
			out = append(out, nc.Guard)
		}
	}
	return out
}
