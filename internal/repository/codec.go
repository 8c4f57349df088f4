package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fluxarr/fluxarr/internal/models"
)

// timeLayout matches sqlite's datetime('now') output. All timestamps are
// stored as UTC text in this layout.
const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.UTC)
}

func scanTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// encodeStringList serializes a string slice for a JSON-text column. Nil and
// empty slices both encode as "[]" so reads never have to special-case NULL
// against absent.
func encodeStringList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeStringList(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil
	}
	return values
}

func encodeProgress(p *models.SyncProgress) interface{} {
	if p == nil {
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return string(b)
}

func decodeProgress(raw sql.NullString) *models.SyncProgress {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var p models.SyncProgress
	if err := json.Unmarshal([]byte(raw.String), &p); err != nil {
		return nil
	}
	return &p
}
