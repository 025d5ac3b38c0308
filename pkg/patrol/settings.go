package patrol

import "github.com/crimson-sun/patrolaudit/internal/model"

// ErrInvalidSettings is matched (via errors.Is) by every settings validation failure.
var ErrInvalidSettings = model.ErrInvalidSettings

// DinnerInterval is a clock-time window, "HH:MM" to "HH:MM", inside which
// long gaps between checkpoints are excused. End before Start wraps past midnight.
type DinnerInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Settings are the operating rules a log is audited against.
type Settings struct {
	MaxIntervalMinutes float64          `json:"max_interval_minutes"`
	TotalLocations     int              `json:"total_locations"`
	DinnerIntervals    []DinnerInterval `json:"dinner_intervals"`
	DayFirst           bool             `json:"day_first"` // dates read DD/MM/YYYY instead of MM/DD/YYYY

	RoundStartToleranceMinutes float64 `json:"round_start_tolerance_minutes"`
	RoundEndToleranceMinutes   float64 `json:"round_end_tolerance_minutes"`
}

// DefaultSettings returns a 10 minute interval limit, 10 locations, and
// one dinner interval from 23:00 to 23:30.
func DefaultSettings() Settings {
	return settingsFromModel(model.DefaultSettings())
}

func (s Settings) toModel() model.Settings {
	out := model.Settings{
		MaxIntervalMinutes:         s.MaxIntervalMinutes,
		TotalLocations:             s.TotalLocations,
		DateOrder:                  model.MonthDayYear,
		RoundStartToleranceMinutes: s.RoundStartToleranceMinutes,
		RoundEndToleranceMinutes:   s.RoundEndToleranceMinutes,
	}
	if s.DayFirst {
		out.DateOrder = model.DayMonthYear
	}
	for _, iv := range s.DinnerIntervals {
		out.DinnerIntervals = append(out.DinnerIntervals, model.DinnerInterval{Start: iv.Start, End: iv.End})
	}
	return out
}

func settingsFromModel(m model.Settings) Settings {
	out := Settings{
		MaxIntervalMinutes:         m.MaxIntervalMinutes,
		TotalLocations:             m.TotalLocations,
		DayFirst:                   m.Order() == model.DayMonthYear,
		RoundStartToleranceMinutes: m.RoundStartToleranceMinutes,
		RoundEndToleranceMinutes:   m.RoundEndToleranceMinutes,
	}
	for _, iv := range m.DinnerIntervals {
		out.DinnerIntervals = append(out.DinnerIntervals, DinnerInterval{Start: iv.Start, End: iv.End})
	}
	return out
}
