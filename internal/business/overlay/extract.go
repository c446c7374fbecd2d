package overlay

import (
	"math"
	"time"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

var epoch = time.Unix(0, 0).UTC()

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DeriveArea returns the area a suggestion contributes to its group.
// The sources are tried in a fixed order and never combined.
func DeriveArea(s model.Suggestion) float64 {
	if s.EnginePayload.AreaSqm != nil {
		return *s.EnginePayload.AreaSqm
	}
	if s.EnginePayload.AffectedAreaSqm != nil {
		return *s.EnginePayload.AffectedAreaSqm
	}
	if s.Score != nil {
		return math.Max(0, roundHalfUp(*s.Score*1000)/10)
	}
	return 0
}

// EffectiveTimestamp orders revisions: updatedAt, then createdAt, then the Unix epoch.
func EffectiveTimestamp(s model.Suggestion) time.Time {
	if ts, ok := parseTimestamp(s.UpdatedAt); ok {
		return ts
	}
	if ts, ok := parseTimestamp(s.CreatedAt); ok {
		return ts
	}
	return epoch
}

// MissingMetricKey returns the metric a suggestion reports as missing, if any.
func MissingMetricKey(s model.Suggestion) (string, bool) {
	if m := s.EnginePayload.MissingMetric; m != nil && *m != "" {
		return *m, true
	}
	if m := s.EnginePayload.Metric; m != nil && *m != "" {
		return *m, true
	}
	return "", false
}

// GroupKey identifies the finding a suggestion belongs to.
func GroupKey(s model.Suggestion) string {
	if key, ok := MissingMetricKey(s); ok {
		return key
	}
	return s.Code
}

func parseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// roundHalfUp rounds .5 toward +Inf, unlike math.Round.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
