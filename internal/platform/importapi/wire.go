package importapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

// Wire payloads use snake_case; this file is the only place that knows it.

type wireImportStatus struct {
	ImportID       string  `json:"import_id"`
	Status         string  `json:"status"`
	DetectedFloors int     `json:"detected_floors"`
	DetectedUnits  int     `json:"detected_units"`
	Error          *string `json:"error"`
}

func (w wireImportStatus) toModel() model.ImportStatus {
	status := model.ImportStatus{
		ImportID:       w.ImportID,
		Status:         model.ParseImportState(w.Status),
		DetectedFloors: w.DetectedFloors,
		DetectedUnits:  w.DetectedUnits,
	}
	if w.Error != nil {
		status.Error = *w.Error
	}
	return status
}

// Suggestion fields are decoded loosely: a value of the wrong JSON type is
// dropped rather than failing the whole list.
type wireSuggestion struct {
	ID            any `json:"id"`
	ProjectID     any `json:"project_id"`
	Code          any `json:"code"`
	Severity      any `json:"severity"`
	Status        any `json:"status"`
	CreatedAt     any `json:"created_at"`
	UpdatedAt     any `json:"updated_at"`
	EnginePayload any `json:"engine_payload"`
	Score         any `json:"score"`
}

func (w wireSuggestion) toModel() model.Suggestion {
	payload, _ := w.EnginePayload.(map[string]any)
	s := model.Suggestion{
		ID:            idString(w.ID),
		ProjectID:     str(w.ProjectID),
		Code:          str(w.Code),
		Severity:      model.ParseSeverity(str(w.Severity)),
		Status:        model.ParseReviewStatus(str(w.Status)),
		CreatedAt:     str(w.CreatedAt),
		UpdatedAt:     str(w.UpdatedAt),
		EnginePayload: model.PayloadFromMap(payload),
	}
	if score, ok := w.Score.(float64); ok {
		s.Score = &score
	}
	return s
}

type wireSuggestionList struct {
	Items []json.RawMessage `json:"items"`
}

// DecodeSuggestions reads a suggestion list in wire format, either a bare JSON
// array or an object with an "items" array, and returns it in input order.
// Only an unreadable envelope is an error; entries that are not JSON objects
// are skipped and mistyped fields fall back to their defaults.
func DecodeSuggestions(r io.Reader) ([]model.Suggestion, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read suggestions: %w", err)
	}
	buf = bytes.TrimSpace(buf)

	var raw []json.RawMessage
	if len(buf) > 0 && buf[0] == '{' {
		var list wireSuggestionList
		if err := json.Unmarshal(buf, &list); err != nil {
			return nil, fmt.Errorf("decode suggestions: %w", err)
		}
		raw = list.Items
	} else if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}

	out := make([]model.Suggestion, 0, len(raw))
	for _, item := range raw {
		if bytes.Equal(item, []byte("null")) {
			continue
		}
		var w wireSuggestion
		if err := json.Unmarshal(item, &w); err != nil {
			continue
		}
		s := w.toModel()
		s.Seq = len(out)
		out = append(out, s)
	}
	return out, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
