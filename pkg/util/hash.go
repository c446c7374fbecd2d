package util

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

// SuggestionDocID derives a stable document id for a raw suggestion so that
// re-syncing the same upstream record overwrites instead of duplicating it.
// pos is the record's index in the upstream response and only matters for
// records without an upstream id.
func SuggestionDocID(projectID string, s model.Suggestion, pos int) string {
	if s.ID != "" {
		return HashString(projectID + "|" + s.ID)
	}
	builder := strings.Builder{}
	builder.WriteString(strings.TrimSpace(projectID))
	builder.WriteString("|")
	builder.WriteString(strings.TrimSpace(s.Code))
	builder.WriteString("|")
	builder.WriteString(strings.TrimSpace(s.CreatedAt))
	builder.WriteString("|")
	builder.WriteString(strings.TrimSpace(s.UpdatedAt))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(pos))
	return hashString(builder.String())
}

// HashString returns the MD5 hash of an arbitrary string.
func HashString(input string) string {
	return hashString(strings.TrimSpace(input))
}

func hashString(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
