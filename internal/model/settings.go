package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSettings is matched by every settings validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// SettingsError reports which field failed validation and why.
type SettingsError struct {
	Field  string
	Reason string
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("invalid settings: %s: %s", e.Field, e.Reason)
}

func (e *SettingsError) Is(target error) bool {
	return target == ErrInvalidSettings
}

// DateOrder says which of the two leading date fields is the month.
type DateOrder string

const (
	MonthDayYear DateOrder = "mdy"
	DayMonthYear DateOrder = "dmy"
)

// DinnerInterval is a clock-time window, "HH:MM" to "HH:MM", during which
// long gaps between checkpoints are excused. End before Start wraps past midnight.
type DinnerInterval struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Settings holds the operating rules a log is audited against.
type Settings struct {
	MaxIntervalMinutes float64          `json:"max_interval_minutes" yaml:"max_interval_minutes"`
	TotalLocations     int              `json:"total_locations" yaml:"total_locations"`
	DinnerIntervals    []DinnerInterval `json:"dinner_intervals" yaml:"dinner_intervals"`
	DateOrder          DateOrder        `json:"date_order,omitempty" yaml:"date_order,omitempty"`

	// Accepted and validated, but no rule consumes them yet.
	RoundStartToleranceMinutes float64 `json:"round_start_tolerance_minutes" yaml:"round_start_tolerance_minutes"`
	RoundEndToleranceMinutes   float64 `json:"round_end_tolerance_minutes" yaml:"round_end_tolerance_minutes"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		MaxIntervalMinutes:         10,
		TotalLocations:             10,
		DinnerIntervals:            []DinnerInterval{{Start: "23:00", End: "23:30"}},
		DateOrder:                  MonthDayYear,
		RoundStartToleranceMinutes: 5,
		RoundEndToleranceMinutes:   5,
	}
}

// Validate checks every field and returns a *SettingsError for the first bad one.
func (s Settings) Validate() error {
	if !(s.MaxIntervalMinutes > 0) {
		return &SettingsError{Field: "max_interval_minutes", Reason: "must be greater than zero"}
	}
	if s.TotalLocations <= 0 {
		return &SettingsError{Field: "total_locations", Reason: "must be greater than zero"}
	}
	switch s.DateOrder {
	case "", MonthDayYear, DayMonthYear:
	default:
		return &SettingsError{Field: "date_order", Reason: fmt.Sprintf("unknown order %q (want mdy or dmy)", s.DateOrder)}
	}
	if s.RoundStartToleranceMinutes < 0 {
		return &SettingsError{Field: "round_start_tolerance_minutes", Reason: "must not be negative"}
	}
	if s.RoundEndToleranceMinutes < 0 {
		return &SettingsError{Field: "round_end_tolerance_minutes", Reason: "must not be negative"}
	}
	for i, iv := range s.DinnerIntervals {
		if _, err := ParseClock(iv.Start); err != nil {
			return &SettingsError{Field: fmt.Sprintf("dinner_intervals[%d].start", i), Reason: err.Error()}
		}
		if _, err := ParseClock(iv.End); err != nil {
			return &SettingsError{Field: fmt.Sprintf("dinner_intervals[%d].end", i), Reason: err.Error()}
		}
	}
	return nil
}

// Order returns the configured date order, defaulting to month/day/year.
func (s Settings) Order() DateOrder {
	if s.DateOrder == "" {
		return MonthDayYear
	}
	return s.DateOrder
}

// Clock is a time of day in minutes since midnight.
type Clock int

// ParseClock parses "HH:MM" (24-hour) into minutes since midnight.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("malformed clock time %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("hour out of range in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("minute out of range in %q", s)
	}
	return Clock(h*60 + m), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}
