// Package evidence fuses content payloads with pattern matches into
// canonical, report-ready records.
package evidence

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"evscan/internal/navigator"
	"evscan/internal/pattern"
)

// Record is a consolidated match ready for reporting. Optional fields
// are empty strings and are omitted from structured output. The field
// order here fixes the structured artifact's object layout.
type Record struct {
	SourceFile   string `json:"source_file"`
	InternalPath string `json:"internal_path"`
	PatternType  string `json:"pattern_type"`
	MatchValue   string `json:"match_value"`
	FileType     string `json:"file_type,omitempty"`
	Context      string `json:"context,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// Build combines a payload and one of its matches into a Record.
// source_file is the container's base name; internal_path is the
// member's archive-relative path verbatim.
func Build(payload navigator.Payload, match pattern.Match) Record {
	return Record{
		SourceFile:   filepath.Base(payload.SourceFile),
		InternalPath: payload.InternalPath,
		PatternType:  match.RuleName,
		MatchValue:   match.Value,
		FileType:     payload.FileType,
		Context:      composeContext(payload, match),
		Timestamp:    formatTimestamp(payload.Modified),
	}
}

// composeContext joins the applicable fragments with " | ": table and
// row hints for database rows, then the match's location descriptor,
// then its trimmed context window.
func composeContext(payload navigator.Payload, match pattern.Match) string {
	var pieces []string

	if payload.Kind == navigator.KindDatabaseRow {
		if payload.Table != "" {
			pieces = append(pieces, "table "+payload.Table)
		}
		pieces = append(pieces, fmt.Sprintf("row %d", payload.RowIndex))
	}

	if match.Location != "" {
		pieces = append(pieces, match.Location)
	}

	if trimmed := strings.TrimSpace(match.Context); trimmed != "" {
		pieces = append(pieces, trimmed)
	}

	return strings.Join(pieces, " | ")
}

// formatTimestamp renders a modification time as ISO-8601 UTC with a
// literal Z suffix. Times without zone information are taken as UTC.
func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
