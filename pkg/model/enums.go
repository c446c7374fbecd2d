package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Severity is the closed set of severities a suggestion can carry.
// SeverityNone is synthetic: it stands for "no recognised severity" and is never
// produced from an upstream "none" string any differently than from garbage.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityNone   Severity = "none"
)

// ParseSeverity case-folds raw and accepts only high, medium and low.
func ParseSeverity(raw string) Severity {
	switch Severity(fold(raw)) {
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	case SeverityLow:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Rank returns a numeric priority (higher = more severe).
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ReviewStatus is the reviewer-facing state of a suggestion.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusRejected ReviewStatus = "rejected"
	StatusApproved ReviewStatus = "approved"
	// StatusSource is the pre-review state; every unrecognised string lands here.
	StatusSource ReviewStatus = "source"
)

// AllReviewStatuses lists every status in priority order.
var AllReviewStatuses = []ReviewStatus{StatusPending, StatusRejected, StatusApproved, StatusSource}

// ParseReviewStatus case-folds raw. The mapping is total.
func ParseReviewStatus(raw string) ReviewStatus {
	switch ReviewStatus(fold(raw)) {
	case StatusApproved:
		return StatusApproved
	case StatusRejected:
		return StatusRejected
	case StatusPending:
		return StatusPending
	default:
		return StatusSource
	}
}

// ParseStatusFilter reads a comma-separated status list. Unlike ParseReviewStatus
// it rejects unknown names. Blank entries are skipped.
func ParseStatusFilter(raw string) ([]ReviewStatus, error) {
	var out []ReviewStatus
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st := ParseReviewStatus(part)
		if string(st) != fold(part) {
			return nil, fmt.Errorf("unknown status %q", part)
		}
		out = append(out, st)
	}
	return out, nil
}

// Rank orders statuses by how much reviewer attention they need.
// Values outside the enumeration rank below StatusSource.
func (s ReviewStatus) Rank() int {
	switch s {
	case StatusPending:
		return 4
	case StatusRejected:
		return 3
	case StatusApproved:
		return 2
	case StatusSource:
		return 1
	default:
		return 0
	}
}

// ImportState is the status vocabulary of the upstream import job.
// Unknown values are kept verbatim and treated as in-progress.
type ImportState string

const (
	ImportQueued    ImportState = "queued"
	ImportRunning   ImportState = "running"
	ImportPending   ImportState = "pending"
	ImportCompleted ImportState = "completed"
	ImportFailed    ImportState = "failed"
	ImportError     ImportState = "error"
	// ImportTimedOut is emitted locally when polling gives up on a job.
	ImportTimedOut ImportState = "timed_out"
)

// ParseImportState case-folds raw.
func ParseImportState(raw string) ImportState {
	return ImportState(fold(raw))
}

// IsTerminal reports whether no further polling should happen after this state.
func (s ImportState) IsTerminal() bool {
	switch s {
	case ImportCompleted, ImportFailed, ImportError, ImportTimedOut:
		return true
	}
	return false
}

// A Caser is stateful, so each call gets its own.
func fold(raw string) string {
	return cases.Fold().String(raw)
}
