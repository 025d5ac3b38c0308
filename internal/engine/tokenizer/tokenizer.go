package tokenizer

import (
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/patrolaudit/internal/model"
)

// lineRe matches "DD/DD/DDDD[,] HH:MM[:SS] [|] MESSAGE".
var lineRe = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4}),?\s+(\d{2}):(\d{2})(?::(\d{2}))?\s*(?:\|\s*)?(.*)$`)

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithHeaderPrefixes sets the prefixes of lines dropped silently as column headers.
func WithHeaderPrefixes(prefixes []string) Option {
	return func(t *Tokenizer) { t.headers = prefixes }
}

// WithLogger sets the logger used for dropped-line warnings. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tokenizer) { t.logger = l }
}

// Tokenizer splits a log text into timestamped raw events.
// Timestamps are naive wall-clock values carried in UTC.
type Tokenizer struct {
	order   model.DateOrder
	headers []string
	logger  *slog.Logger
}

// New creates a Tokenizer that reads dates in the given field order.
func New(order model.DateOrder, opts ...Option) *Tokenizer {
	t := &Tokenizer{order: order}
	for _, opt := range opts {
		opt(t)
	}
	if t.order == "" {
		t.order = model.MonthDayYear
	}
	return t
}

// Tokenize parses every line it can and returns the events sorted by
// timestamp (ties keep line order) along with the number of dropped lines.
// It never fails: malformed lines only reduce the output.
func (t *Tokenizer) Tokenize(text string) (events []model.RawEvent, dropped int) {
	logger := t.logger
	if logger == nil {
		logger = slog.Default()
	}

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || t.isHeader(line) {
			continue
		}
		ev, reason := t.parseLine(line, i+1)
		if reason != "" {
			dropped++
			logger.Warn("dropping log line", "line", i+1, "reason", reason)
			continue
		}
		events = append(events, ev)
	}

	slices.SortStableFunc(events, func(a, b model.RawEvent) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return events, dropped
}

func (t *Tokenizer) isHeader(line string) bool {
	for _, p := range t.headers {
		if p != "" && strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// parseLine returns the event, or a non-empty reason when the line is unusable.
func (t *Tokenizer) parseLine(line string, num int) (model.RawEvent, string) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return model.RawEvent{}, "does not match the line grammar"
	}

	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	sec := 0
	if m[6] != "" {
		sec, _ = strconv.Atoi(m[6])
	}

	month, day := first, second
	if t.order == model.DayMonthYear {
		month, day = second, first
	}

	ts, ok := civil(year, month, day, hour, minute, sec)
	if !ok {
		return model.RawEvent{}, "invalid calendar date or time"
	}
	return model.RawEvent{
		Timestamp: ts,
		Text:      norm.NFC.String(strings.TrimSpace(m[7])),
		Line:      num,
	}, ""
}

// civil builds a timestamp, rejecting values time.Date would silently normalize.
func civil(year, month, day, hour, minute, sec int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, false
	}
	ts := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	if ts.Day() != day || int(ts.Month()) != month {
		return time.Time{}, false
	}
	return ts, true
}
