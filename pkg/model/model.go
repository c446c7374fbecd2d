package model

import "time"

// EnginePayload carries the optional detection attributes the overlay engine attaches
// to a suggestion. Absent fields stay nil.
type EnginePayload struct {
	AreaSqm         *float64 `json:"areaSqm,omitempty" firestore:"area_sqm,omitempty"`
	AffectedAreaSqm *float64 `json:"affectedAreaSqm,omitempty" firestore:"affected_area_sqm,omitempty"`
	MissingMetric   *string  `json:"missingMetric,omitempty" firestore:"missing_metric,omitempty"`
	Metric          *string  `json:"metric,omitempty" firestore:"metric,omitempty"`
}

// PayloadFromMap picks the known attributes out of an open attribute bag.
// Numeric fields accept numbers only and metric fields accept strings only.
func PayloadFromMap(bag map[string]any) EnginePayload {
	var p EnginePayload
	if bag == nil {
		return p
	}
	p.AreaSqm = numberField(bag, "area_sqm")
	p.AffectedAreaSqm = numberField(bag, "affected_area_sqm")
	p.MissingMetric = stringField(bag, "missing_metric")
	p.Metric = stringField(bag, "metric")
	return p
}

func numberField(bag map[string]any, key string) *float64 {
	var f float64
	switch v := bag[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return nil
	}
	return &f
}

func stringField(bag map[string]any, key string) *string {
	s, ok := bag[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// Suggestion is one raw overlay suggestion record. Severity and Status are parsed
// at the boundary; timestamps stay raw because a bad one must not reject the record.
type Suggestion struct {
	ID            string        `json:"id,omitempty" firestore:"id,omitempty"`
	ProjectID     string        `json:"projectId,omitempty" firestore:"projectId,omitempty"`
	Code          string        `json:"code" firestore:"code"`
	Severity      Severity      `json:"severity" firestore:"severity"`
	Status        ReviewStatus  `json:"status" firestore:"status"`
	CreatedAt     string        `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	UpdatedAt     string        `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
	EnginePayload EnginePayload `json:"enginePayload" firestore:"enginePayload"`
	Score         *float64      `json:"score,omitempty" firestore:"score,omitempty"`
	Seq           int           `json:"-" firestore:"seq"` // upstream position, keeps stored order stable
}

// AggregatedSuggestion is one reviewer-facing finding folded from raw suggestions.
type AggregatedSuggestion struct {
	Key              string       `json:"key" firestore:"key"`
	Suggestion       Suggestion   `json:"suggestion" firestore:"suggestion"`
	Count            int          `json:"count" firestore:"count"`
	Status           ReviewStatus `json:"status" firestore:"status"`
	TotalArea        float64      `json:"totalArea" firestore:"totalArea"`
	Severity         Severity     `json:"severity" firestore:"severity"`
	MissingMetricKey *string      `json:"missingMetricKey,omitempty" firestore:"missingMetricKey,omitempty"`
}

// SeverityBuckets counts aggregated findings per severity.
type SeverityBuckets struct {
	High   int `json:"high" firestore:"high"`
	Medium int `json:"medium" firestore:"medium"`
	Low    int `json:"low" firestore:"low"`
	None   int `json:"none" firestore:"none"`
}

// Total sums all four buckets.
func (b SeverityBuckets) Total() int {
	return b.High + b.Medium + b.Low + b.None
}

// SeverityPercentages holds one-decimal percentages per bucket.
type SeverityPercentages struct {
	High   float64 `json:"high" firestore:"high"`
	Medium float64 `json:"medium" firestore:"medium"`
	Low    float64 `json:"low" firestore:"low"`
	None   float64 `json:"none" firestore:"none"`
}

// SeverityOverview is the per-project dashboard snapshot stored in `overviews`.
type SeverityOverview struct {
	ProjectID       string              `json:"projectId" firestore:"projectId"`
	Groups          int                 `json:"groups" firestore:"groups"`
	Buckets         SeverityBuckets     `json:"buckets" firestore:"buckets"`
	Percentages     SeverityPercentages `json:"percentages" firestore:"percentages"`
	VisibleStatuses []ReviewStatus      `json:"visibleStatuses" firestore:"visibleStatuses"`
	LastUpdated     time.Time           `json:"lastUpdated,omitempty" firestore:"lastUpdated,omitempty"`
}

// ImportStatus is one observed state of an upstream import job.
type ImportStatus struct {
	ImportID       string      `json:"importId" firestore:"importId"`
	Status         ImportState `json:"status" firestore:"status"`
	DetectedFloors int         `json:"detectedFloors,omitempty" firestore:"detectedFloors,omitempty"`
	DetectedUnits  int         `json:"detectedUnits,omitempty" firestore:"detectedUnits,omitempty"`
	Error          string      `json:"error,omitempty" firestore:"error,omitempty"`
}

// WatchCancelled marks an ImportWatch stopped by an operator.
const WatchCancelled = "cancelled"

// ImportWatch tracks a server-side polling session in `import_watches`.
type ImportWatch struct {
	WatchID    string       `json:"watchId" firestore:"watchId"`
	ImportID   string       `json:"importId" firestore:"importId"`
	Status     string       `json:"status" firestore:"status"`
	Updates    int          `json:"updates" firestore:"updates"`
	LastUpdate ImportStatus `json:"lastUpdate,omitempty" firestore:"lastUpdate,omitempty"`
	StartedAt  time.Time    `json:"startedAt,omitempty" firestore:"startedAt,omitempty"`
	FinishedAt time.Time    `json:"finishedAt,omitempty" firestore:"finishedAt,omitempty"`
}
