package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

func ptr[T any](v T) *T { return &v }

func suggestion(code string, sev model.Severity, st model.ReviewStatus, updatedAt string) model.Suggestion {
	return model.Suggestion{
		ID:        code + "@" + updatedAt,
		Code:      code,
		Severity:  sev,
		Status:    st,
		UpdatedAt: updatedAt,
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = Aggregate([]model.Suggestion{})
	assert.Empty(t, got)
}

func TestFilterLatestRevisionsKeepsNewest(t *testing.T) {
	older := suggestion("unit_space_setback", model.SeverityLow, model.StatusSource, "2024-05-01T10:00:00Z")
	newer := suggestion("unit_space_setback", model.SeverityLow, model.StatusSource, "2024-05-02T10:00:00Z")

	for _, in := range [][]model.Suggestion{{older, newer}, {newer, older}} {
		got := FilterLatestRevisions(in)
		require.Len(t, got, 1)
		assert.Equal(t, newer.ID, got[0].ID)
	}
}

func TestFilterLatestRevisionsFirstTieWins(t *testing.T) {
	a := suggestion("unit_space_width", model.SeverityLow, model.StatusSource, "2024-05-02T10:00:00Z")
	a.ID = "first"
	b := a
	b.ID = "second"

	got := FilterLatestRevisions([]model.Suggestion{a, b})
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].ID)
}

func TestFilterLatestRevisionsPassesOtherCodes(t *testing.T) {
	in := []model.Suggestion{
		suggestion("door_width", model.SeverityLow, model.StatusSource, "2024-05-01T10:00:00Z"),
		suggestion("door_width", model.SeverityLow, model.StatusSource, "2024-05-03T10:00:00Z"),
		suggestion("unit_space_area", model.SeverityLow, model.StatusSource, "garbage"),
	}
	got := FilterLatestRevisions(in)
	assert.Len(t, got, 3)
}

func TestFilterLatestRevisionsFallsBackToCreatedAt(t *testing.T) {
	a := model.Suggestion{ID: "a", Code: "unit_space_x", UpdatedAt: "not a date", CreatedAt: "2024-01-02T00:00:00Z"}
	b := model.Suggestion{ID: "b", Code: "unit_space_x", CreatedAt: "2024-01-01T00:00:00Z"}
	c := model.Suggestion{ID: "c", Code: "unit_space_x"}

	got := FilterLatestRevisions([]model.Suggestion{c, b, a})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestAggregateStatusPriority(t *testing.T) {
	got := Aggregate([]model.Suggestion{
		suggestion("door_width", model.SeverityLow, model.StatusSource, "2024-05-01T10:00:00Z"),
		suggestion("door_width", model.SeverityLow, model.StatusPending, "2024-05-01T09:00:00Z"),
		suggestion("door_width", model.SeverityLow, model.StatusApproved, "2024-05-01T08:00:00Z"),
	})
	require.Len(t, got, 1)
	assert.Equal(t, model.StatusPending, got[0].Status)
	assert.Equal(t, 3, got[0].Count)
}

func TestAggregateSeverityPriority(t *testing.T) {
	got := Aggregate([]model.Suggestion{
		suggestion("door_width", model.SeverityLow, model.StatusSource, "2024-05-01T10:00:00Z"),
		suggestion("door_width", model.SeverityHigh, model.StatusSource, "2024-05-01T10:00:00Z"),
		suggestion("door_width", model.ParseSeverity("urgent"), model.StatusSource, "2024-05-01T10:00:00Z"),
	})
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityHigh, got[0].Severity)
}

func TestAggregateUnrecognisedSeverityIsNone(t *testing.T) {
	got := Aggregate([]model.Suggestion{
		suggestion("a", model.Severity("critical"), model.StatusSource, "2024-01-01T00:00:00Z"),
		suggestion("a", model.SeverityNone, model.StatusSource, "2024-01-02T00:00:00Z"),
		suggestion("b", model.SeverityNone, model.StatusSource, "2024-01-01T00:00:00Z"),
		suggestion("b", model.SeverityLow, model.StatusSource, "2024-01-01T00:00:00Z"),
	})
	require.Len(t, got, 2)
	assert.Equal(t, model.SeverityNone, got[0].Severity)
	assert.Equal(t, model.SeverityLow, got[1].Severity)
}

func TestAggregateRepresentativeLastTieWins(t *testing.T) {
	a := suggestion("door_width", model.SeverityLow, model.StatusSource, "2024-05-01T10:00:00Z")
	a.ID = "first"
	b := a
	b.ID = "second"
	c := suggestion("door_width", model.SeverityLow, model.StatusSource, "2024-04-01T10:00:00Z")
	c.ID = "older"

	got := Aggregate([]model.Suggestion{a, b, c})
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Suggestion.ID)
}

func TestAggregateGroupsByMissingMetric(t *testing.T) {
	a := suggestion("ceiling_rule_a", model.SeverityMedium, model.StatusSource, "2024-05-01T10:00:00Z")
	a.EnginePayload.MissingMetric = ptr("ceiling_height")
	b := suggestion("ceiling_rule_b", model.SeverityLow, model.StatusSource, "2024-05-01T11:00:00Z")
	b.EnginePayload.Metric = ptr("ceiling_height")
	c := suggestion("door_width", model.SeverityLow, model.StatusSource, "2024-05-01T11:00:00Z")

	got := Aggregate([]model.Suggestion{c, a, b})
	require.Len(t, got, 2)
	assert.Equal(t, "door_width", got[0].Key)
	assert.Nil(t, got[0].MissingMetricKey)
	assert.Equal(t, "ceiling_height", got[1].Key)
	assert.Equal(t, 2, got[1].Count)
	require.NotNil(t, got[1].MissingMetricKey)
	assert.Equal(t, "ceiling_height", *got[1].MissingMetricKey)
	assert.Equal(t, model.SeverityMedium, got[1].Severity)
}

func TestAggregateOrderFollowsFirstAppearance(t *testing.T) {
	got := Aggregate([]model.Suggestion{
		suggestion("b_rule", model.SeverityLow, model.StatusSource, ""),
		suggestion("a_rule", model.SeverityHigh, model.StatusPending, ""),
		suggestion("b_rule", model.SeverityLow, model.StatusSource, ""),
		suggestion("c_rule", model.SeverityMedium, model.StatusRejected, ""),
	})
	keys := make([]string, 0, len(got))
	for _, g := range got {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"b_rule", "a_rule", "c_rule"}, keys)
}

func TestAggregateTotalArea(t *testing.T) {
	a := model.Suggestion{Code: "x", EnginePayload: model.EnginePayload{AreaSqm: ptr(10.0), AffectedAreaSqm: ptr(99.0)}}
	b := model.Suggestion{Code: "x", EnginePayload: model.EnginePayload{AffectedAreaSqm: ptr(2.5)}}
	c := model.Suggestion{Code: "x", Score: ptr(0.1234)}
	d := model.Suggestion{Code: "x"}

	got := Aggregate([]model.Suggestion{a, b, c, d})
	require.Len(t, got, 1)
	assert.InDelta(t, 24.8, got[0].TotalArea, 1e-9)
	assert.Equal(t, 4, got[0].Count)
}

func TestAggregateGroupCountMatchesDistinctKeys(t *testing.T) {
	in := []model.Suggestion{
		suggestion("unit_space_a", model.SeverityLow, model.StatusSource, "2024-01-01T00:00:00Z"),
		suggestion("unit_space_a", model.SeverityLow, model.StatusSource, "2024-01-02T00:00:00Z"),
		suggestion("rule_b", model.SeverityLow, model.StatusSource, ""),
		suggestion("rule_b", model.SeverityLow, model.StatusSource, ""),
		suggestion("rule_c", model.SeverityLow, model.StatusSource, ""),
	}
	distinct := make(map[string]bool)
	for _, s := range FilterLatestRevisions(in) {
		distinct[GroupKey(s)] = true
	}
	assert.Len(t, Aggregate(in), len(distinct))
}

func TestAggregateReexpansionKeepsGroups(t *testing.T) {
	a := suggestion("ceiling_rule", model.SeverityHigh, model.StatusPending, "2024-05-01T10:00:00Z")
	a.EnginePayload.MissingMetric = ptr("ceiling_height")
	in := []model.Suggestion{
		a,
		suggestion("door_width", model.SeverityLow, model.StatusSource, "2024-05-01T10:00:00Z"),
		suggestion("door_width", model.SeverityMedium, model.StatusSource, "2024-05-02T10:00:00Z"),
		suggestion("unit_space_depth", model.SeverityLow, model.StatusSource, "2024-05-02T10:00:00Z"),
	}
	first := Aggregate(in)

	reexpanded := make([]model.Suggestion, 0, len(first))
	for _, g := range first {
		reexpanded = append(reexpanded, g.Suggestion)
	}
	second := Aggregate(reexpanded)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
		assert.Equal(t, 1, second[i].Count)
	}
}
