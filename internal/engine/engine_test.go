package engine

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/crimson-sun/patrolaudit/internal/engine/roster"
	"github.com/crimson-sun/patrolaudit/internal/engine/testdata"
	"github.com/crimson-sun/patrolaudit/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestEngine(t *testing.T, total int) *Engine {
	t.Helper()
	s := model.DefaultSettings()
	s.TotalLocations = total
	eng, err := New(s, roster.DefaultVocabulary(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return eng
}

func kindNames(res model.AnalysisResult) []string {
	out := []string{}
	for _, nc := range res.NonConformities {
		out = append(out, nc.Kind.String())
	}
	return out
}

func TestCorpus(t *testing.T) {
	entries, err := testdata.LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}

	for _, e := range entries {
		t.Run(e.Name, func(t *testing.T) {
			eng := newTestEngine(t, e.TotalLocations)
			res, err := eng.Analyze(e.Text())
			if err != nil {
				t.Fatalf("Analyze() error: %v", err)
			}
			if diff := cmp.Diff(e.ExpectedKinds, kindNames(res)); diff != "" {
				t.Errorf("%s: kinds mismatch (-want +got):\n%s", e.Description, diff)
			}
			if res.HasRounds != e.HasRounds {
				t.Errorf("HasRounds = %v, want %v", res.HasRounds, e.HasRounds)
			}
		})
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	entries, err := testdata.LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}
	var all []string
	for _, e := range entries {
		all = append(all, e.Log...)
	}
	text := strings.Join(all, "\n")

	eng := newTestEngine(t, 3)
	first, err := eng.Analyze(text)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	second, err := eng.Analyze(text)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second analysis differs (-first +second):\n%s", diff)
	}

	ids := map[string]bool{}
	for _, nc := range first.NonConformities {
		if ids[nc.ID] {
			t.Errorf("duplicate ID %s", nc.ID)
		}
		ids[nc.ID] = true
	}
}

func TestAnalyzeCountsAndStats(t *testing.T) {
	text := strings.Join([]string{
		"Data e Hora | Evento",
		"03/14/2025 21:00 LOCAL 1",
		"03/14/2025 21:01 LOCAL 2",
		"not a log line",
		"03/14/2025 22:00 INICIO RONDA PORTARIA",
		"03/14/2025 22:00 FERNANDO",
		"03/14/2025 22:05 LOCAL 2",
	}, "\n")

	res, err := newTestEngine(t, 2).Analyze(text)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	wantKinds := []string{"round_not_started", "round_not_started", "incomplete_round", "discharge_missing"}
	if diff := cmp.Diff(wantKinds, kindNames(res)); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}
	wantByType := []model.CountItem{
		{Name: model.RoundNotStarted.Label(), Count: 2},
		{Name: model.IncompleteRound.Label(), Count: 1},
		{Name: model.DischargeMissing.Label(), Count: 1},
	}
	if diff := cmp.Diff(wantByType, res.CountsByType); diff != "" {
		t.Errorf("CountsByType (-want +got):\n%s", diff)
	}
	wantByGuard := []model.CountItem{
		{Name: "Unknown", Count: 2},
		{Name: "FERNANDO", Count: 2},
	}
	if diff := cmp.Diff(wantByGuard, res.CountsByGuard); diff != "" {
		t.Errorf("CountsByGuard (-want +got):\n%s", diff)
	}
	if res.Events != 5 || res.Dropped != 1 || res.Rounds != 1 {
		t.Errorf("stats = events %d dropped %d rounds %d, want 5/1/1", res.Events, res.Dropped, res.Rounds)
	}
}

func TestAnalyzeDayMonthOrder(t *testing.T) {
	s := model.DefaultSettings()
	s.TotalLocations = 1
	s.DateOrder = model.DayMonthYear
	eng, err := New(s, roster.DefaultVocabulary(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res, err := eng.Analyze("25/12/2025 22:00 INICIO RONDA PORTARIA\n25/12/2025 22:05 LOCAL 1")
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if diff := cmp.Diff([]string{"discharge_missing"}, kindNames(res)); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}
	if !strings.Contains(res.NonConformities[0].Details, "25/12/2025 22:00:00") {
		t.Errorf("Details = %q, want day-first start stamp", res.NonConformities[0].Details)
	}
}

func TestAnalyzeCustomVocabulary(t *testing.T) {
	v := roster.Vocabulary{
		StartPhrase:     "ROUND START",
		DischargePhrase: "COLLECTOR UPLOADED",
		Guards:          []string{"Alice"},
		UnknownGuard:    "nobody",
	}
	s := model.DefaultSettings()
	s.TotalLocations = 2
	eng, err := New(s, v, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res, err := eng.Analyze(strings.Join([]string{
		"01/05/2025 08:00 round start",
		"01/05/2025 08:00 alice",
		"01/05/2025 08:03 LOCAL 1",
		"01/05/2025 08:06 collector uploaded",
	}, "\n"))
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if diff := cmp.Diff([]string{"incomplete_round"}, kindNames(res)); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}
	if res.NonConformities[0].Guard != "ALICE" {
		t.Errorf("Guard = %q, want ALICE", res.NonConformities[0].Guard)
	}
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Settings)
	}{
		{"zero interval", func(s *model.Settings) { s.MaxIntervalMinutes = 0 }},
		{"negative interval", func(s *model.Settings) { s.MaxIntervalMinutes = -5 }},
		{"zero locations", func(s *model.Settings) { s.TotalLocations = 0 }},
		{"bad dinner start", func(s *model.Settings) { s.DinnerIntervals = []model.DinnerInterval{{Start: "7pm", End: "20:00"}} }},
		{"bad dinner end", func(s *model.Settings) { s.DinnerIntervals = []model.DinnerInterval{{Start: "19:00", End: "24:00"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := model.DefaultSettings()
			tt.mutate(&s)
			_, err := New(s, roster.DefaultVocabulary())
			if !errors.Is(err, model.ErrInvalidSettings) {
				t.Fatalf("err = %v, want ErrInvalidSettings", err)
			}
			var se *model.SettingsError
			if !errors.As(err, &se) {
				t.Fatalf("err = %T, want *model.SettingsError in chain", err)
			}
		})
	}
}

func TestEvents(t *testing.T) {
	eng := newTestEngine(t, 2)
	events, dropped := eng.Events("03/14/2025 22:05 LOCAL 3\nbad\n03/14/2025 22:00 ROBSON")
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(events) != 2 || events[0].Kind != model.GuardIdentified || events[1].Kind != model.Checkpoint {
		t.Errorf("events = %+v", events)
	}
}

func TestConcurrentAnalyze(t *testing.T) {
	eng := newTestEngine(t, 3)
	entries, err := testdata.LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(entries)*4)
	for i := 0; i < 4; i++ {
		for _, e := range entries {
			wg.Add(1)
			go func(text string) {
				defer wg.Done()
				if _, err := eng.Analyze(text); err != nil {
					errs <- err
				}
			}(e.Text())
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Analyze() error: %v", err)
	}
}

// perfectLog writes a round that follows every rule: start, guard, then
// checkpoints 1..len(gaps) each within limit minutes of the previous, then discharge.
func perfectLog(start time.Time, guard string, gaps []int) string {
	const layout = "01/02/2006 15:04:05"
	var b strings.Builder
	fmt.Fprintf(&b, "%s | INICIO RONDA PORTARIA\n", start.Format(layout))
	fmt.Fprintf(&b, "%s | %s\n", start.Format(layout), guard)
	ts := start
	for i, gap := range gaps {
		ts = ts.Add(time.Duration(gap) * time.Minute)
		fmt.Fprintf(&b, "%s | LOCAL %d\n", ts.Format(layout), i+1)
	}
	fmt.Fprintf(&b, "%s | DESCARGA DE COLETOR EFETUADA\n", ts.Add(time.Minute).Format(layout))
	return b.String()
}

func TestPerfectLogProperty(t *testing.T) {
	guards := roster.DefaultVocabulary().Guards
	base := time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("a perfect round yields no non-conformities", prop.ForAll(
		func(gaps []int, guardIdx int, startMinute int) bool {
			if len(gaps) == 0 {
				return true
			}
			s := model.DefaultSettings()
			s.TotalLocations = len(gaps)
			s.DinnerIntervals = nil
			eng, err := New(s, roster.DefaultVocabulary(), WithLogger(quietLogger()))
			if err != nil {
				return false
			}
			text := perfectLog(base.Add(time.Duration(startMinute)*time.Minute), guards[guardIdx], gaps)
			res, err := eng.Analyze(text)
			if err != nil {
				return false
			}
			return len(res.NonConformities) == 0 && res.HasRounds && res.Rounds == 1
		},
		gen.SliceOf(gen.IntRange(0, 10)),
		gen.IntRange(0, len(guards)-1),
		gen.IntRange(0, 12*60),
	))

	properties.Property("analysis is idempotent", prop.ForAll(
		func(gaps []int, total int) bool {
			s := model.DefaultSettings()
			s.TotalLocations = total
			eng, err := New(s, roster.DefaultVocabulary(), WithLogger(quietLogger()))
			if err != nil {
				return false
			}
			text := perfectLog(base, "PAULO", gaps)
			a, errA := eng.Analyze(text)
			b, errB := eng.Analyze(text)
			return errA == nil && errB == nil && cmp.Equal(a, b)
		},
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}
