package store

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// DetectDSNType determines whether a DSN targets Postgres or SQLite.
// Connection strings beginning with postgres:// or containing host= are
// treated as Postgres; anything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nilIfZeroTime returns nil for the zero time so optional timestamp columns
// store NULL instead of year-one values.
func nilIfZeroTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// encodeStringSlice serializes a string slice for a TEXT column. Empty slices
// become NULL.
func encodeStringSlice(s []string) interface{} {
	if len(s) == 0 {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		slog.Warn("store.encodeStringSlice: marshal failed", "error", err)
		return nil
	}
	return string(b)
}

// decodeStringSlice restores a string slice from a nullable TEXT column.
func decodeStringSlice(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		slog.Warn("store.decodeStringSlice: unmarshal failed", "error", err)
		return nil
	}
	return out
}

// timeOrZero converts a nullable timestamp to a time value.
func timeOrZero(nt sql.NullTime) time.Time {
	if nt.Valid {
		return nt.Time
	}
	return time.Time{}
}
