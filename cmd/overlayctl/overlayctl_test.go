package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

const exportJSON = `{"items":[
  {"id":1,"code":"door_width","severity":"high","status":"pending","created_at":"2024-03-01T10:00:00Z","engine_payload":{"area_sqm":2.5}},
  {"id":2,"code":"door_width","severity":"low","status":"approved","created_at":"2024-03-02T10:00:00Z","engine_payload":{"affected_area_sqm":1.5}},
  {"id":3,"code":"window_ratio","severity":"Medium","status":"source"}
]}`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAggregateCommandJSON(t *testing.T) {
	out, err := run(t, exportJSON, "aggregate", "--status", "pending")
	require.NoError(t, err)

	var res aggregateResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Groups, 2)

	door := res.Groups[0]
	assert.Equal(t, "door_width", door.Key)
	assert.Equal(t, 2, door.Count)
	assert.Equal(t, model.StatusPending, door.Status)
	assert.Equal(t, model.SeverityHigh, door.Severity)
	assert.InDelta(t, 4.0, door.TotalArea, 1e-9)

	assert.Equal(t, model.SeverityBuckets{High: 1}, res.Buckets)
	assert.Equal(t, 100.0, res.Percentages.High)
	assert.Equal(t, []model.ReviewStatus{model.StatusPending}, res.VisibleStatuses)
}

func TestAggregateCommandYAMLSummary(t *testing.T) {
	out, err := run(t, exportJSON, "aggregate", "-o", "yaml", "--summary-only")
	require.NoError(t, err)
	assert.Contains(t, out, "buckets:")
	assert.Contains(t, out, "high: 1")
	assert.Contains(t, out, "medium: 1")
	assert.Contains(t, out, "- pending")
}

func TestAggregateCommandRejectsBadInput(t *testing.T) {
	_, err := run(t, exportJSON, "aggregate", "--status", "suggested")
	assert.ErrorContains(t, err, "unknown status")

	_, err = run(t, exportJSON, "aggregate", "-o", "table")
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = run(t, "not json", "aggregate")
	assert.ErrorContains(t, err, "decode suggestions")
}

func TestWatchCommand(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/imports/imp-9/status", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		state := "running"
		if calls.Add(1) >= 2 {
			state = "completed"
		}
		_, _ = w.Write([]byte(`{"import_id":"imp-9","status":"` + state + `","detected_units":3}`))
	}))
	defer srv.Close()

	out, err := run(t, "", "watch", "imp-9", "--base-url", srv.URL+"/", "--token", "secret", "--interval", "1ms")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, `"importId": "imp-9"`))
	assert.Contains(t, out, `"status": "completed"`)
}

func TestWatchCommandFailedImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failed","error":"bad floor plan"}`))
	}))
	defer srv.Close()

	_, err := run(t, "", "watch", "imp-1", "--base-url", srv.URL, "--interval", "1ms")
	assert.ErrorIs(t, err, errImportNotCompleted)
}

func TestWatchCommandRequiresBaseURL(t *testing.T) {
	t.Setenv("IMPORT_API_BASE_URL", "")
	_, err := run(t, "", "watch", "imp-1", "--base-url", "")
	assert.ErrorContains(t, err, "--base-url")
}
