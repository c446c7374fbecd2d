package overlay

import (
	"strings"
	"time"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

// UnitSpacePrefix marks per-unit spatial checks, which are re-emitted on every
// engine run and must be reduced to their latest revision.
const UnitSpacePrefix = "unit_space_"

// FilterLatestRevisions keeps, for each unit_space_* code, only the first instance
// carrying the newest timestamp. Other codes pass through. Input order is preserved.
func FilterLatestRevisions(suggestions []model.Suggestion) []model.Suggestion {
	latest := make(map[string]time.Time)
	for _, s := range suggestions {
		if !strings.HasPrefix(s.Code, UnitSpacePrefix) {
			continue
		}
		ts := EffectiveTimestamp(s)
		if prev, ok := latest[s.Code]; !ok || ts.After(prev) {
			latest[s.Code] = ts
		}
	}

	kept := make(map[string]bool)
	out := make([]model.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if !strings.HasPrefix(s.Code, UnitSpacePrefix) {
			out = append(out, s)
			continue
		}
		if kept[s.Code] || !EffectiveTimestamp(s).Equal(latest[s.Code]) {
			continue
		}
		kept[s.Code] = true
		out = append(out, s)
	}
	return out
}

type group struct {
	agg      model.AggregatedSuggestion
	latestAt time.Time
}

// Aggregate folds raw suggestions into one entry per group key, in order of each
// key's first appearance. It never fails: malformed fields fall back to defaults.
func Aggregate(suggestions []model.Suggestion) []model.AggregatedSuggestion {
	filtered := FilterLatestRevisions(suggestions)

	index := make(map[string]int, len(filtered))
	groups := make([]*group, 0, len(filtered))

	for _, s := range filtered {
		key := GroupKey(s)
		ts := EffectiveTimestamp(s)

		i, ok := index[key]
		if !ok {
			g := &group{
				agg: model.AggregatedSuggestion{
					Key:        key,
					Suggestion: s,
					Count:      1,
					Status:     s.Status,
					TotalArea:  DeriveArea(s),
					Severity:   model.ParseSeverity(string(s.Severity)),
				},
				latestAt: ts,
			}
			if metric, ok := MissingMetricKey(s); ok {
				g.agg.MissingMetricKey = &metric
			}
			index[key] = len(groups)
			groups = append(groups, g)
			continue
		}

		g := groups[i]
		g.agg.Count++
		g.agg.TotalArea += DeriveArea(s)
		if s.Status.Rank() > g.agg.Status.Rank() {
			g.agg.Status = s.Status
		}
		// Later members win ties here, unlike FilterLatestRevisions.
		if !ts.Before(g.latestAt) {
			g.agg.Suggestion = s
			g.latestAt = ts
		}
		if s.Severity.Rank() > g.agg.Severity.Rank() {
			g.agg.Severity = s.Severity
		}
		if g.agg.MissingMetricKey == nil {
			if metric, ok := MissingMetricKey(s); ok {
				g.agg.MissingMetricKey = &metric
			}
		}
	}

	out := make([]model.AggregatedSuggestion, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.agg)
	}
	return out
}
