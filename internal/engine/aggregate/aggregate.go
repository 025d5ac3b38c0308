package aggregate

import (
	"slices"

	"github.com/crimson-sun/patrolaudit/internal/model"
)

// Aggregate assembles the analysis result from the classified events and
// the violations found in them. Counts are sorted by descending count, ties
// kept in first-occurrence order.
func Aggregate(events []model.ClassifiedEvent, found []model.NonConformity) model.AnalysisResult {
	rounds := 0
	for _, ev := range events {
		if ev.Kind == model.RoundStart {
			rounds++
		}
	}
	if found == nil {
		found = []model.NonConformity{}
	}
	return model.AnalysisResult{
		NonConformities: found,
		CountsByType:    ByType(found),
		CountsByGuard:   ByGuard(found),
		HasRounds:       rounds > 0,
		Events:          len(events),
		Rounds:          rounds,
	}
}

// ByType counts violations per kind, keyed by the kind's label.
func ByType(found []model.NonConformity) []model.CountItem {
	return tally(found, func(nc model.NonConformity) string { return nc.Kind.Label() })
}

// ByGuard counts violations per attributed guard.
func ByGuard(found []model.NonConformity) []model.CountItem {
	return tally(found, func(nc model.NonConformity) string { return nc.Guard })
}

// tally groups by key preserving first-occurrence order, then stable-sorts
// by descending count.
func tally(found []model.NonConformity, key func(model.NonConformity) string) []model.CountItem {
	items := []model.CountItem{}
	index := make(map[string]int)
	for _, nc := range found {
		k := key(nc)
		if i, ok := index[k]; ok {
			items[i].Count++
			continue
		}
		index[k] = len(items)
		items = append(items, model.CountItem{Name: k, Count: 1})
	}
	slices.SortStableFunc(items, func(a, b model.CountItem) int {
		return b.Count - a.Count
	})
	return items
}
