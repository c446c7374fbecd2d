package overlay

import "github.com/weiwei-tsao/overlay-review/pkg/model"

// CountSeverityBuckets counts groups whose status is in visible, per severity.
func CountSeverityBuckets(groups []model.AggregatedSuggestion, visible []model.ReviewStatus) model.SeverityBuckets {
	allowed := make(map[model.ReviewStatus]bool, len(visible))
	for _, st := range visible {
		allowed[st] = true
	}

	var b model.SeverityBuckets
	for _, g := range groups {
		if !allowed[g.Status] {
			continue
		}
		switch g.Severity {
		case model.SeverityHigh:
			b.High++
		case model.SeverityMedium:
			b.Medium++
		case model.SeverityLow:
			b.Low++
		default:
			b.None++
		}
	}
	return b
}

// CalculateSeverityPercentages converts bucket counts to one-decimal percentages.
// Each bucket is rounded on its own, so the sum may drift from 100.
func CalculateSeverityPercentages(b model.SeverityBuckets) model.SeverityPercentages {
	total := b.Total()
	if total == 0 {
		return model.SeverityPercentages{}
	}
	pct := func(n int) float64 {
		return roundHalfUp(float64(n)/float64(total)*1000) / 10
	}
	return model.SeverityPercentages{
		High:   pct(b.High),
		Medium: pct(b.Medium),
		Low:    pct(b.Low),
		None:   pct(b.None),
	}
}
