//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package sqlgen

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// cleanString trims a raw field; empty after trimming means NULL.
func cleanString(s string) string {
	return strings.TrimSpace(s)
}

// sqlString renders a cleaned value as a quoted SQL literal, or NULL when
// the value is empty.
func sqlString(s string) string {
	if s == "" {
		return "NULL"
	}
	return sqlQuote(s)
}

// sqlQuote quotes a value for SQL, doubling embedded single quotes.
func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// marshalJSON encodes without HTML escaping so content survives verbatim.
func marshalJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimRight(buf.String(), "\n")
}

// sqlJSON renders a value as a '...'::jsonb literal, or NULL for nil.
func sqlJSON(v any) string {
	if v == nil {
		return "NULL"
	}
	return sqlQuote(marshalJSON(v)) + "::jsonb"
}

// username derives the account name from an email address: the local part,
// lowercased, with dots removed.
func username(email string) string {
	if email == "" {
		return ""
	}
	local, _, _ := strings.Cut(email, "@")
	return strings.ReplaceAll(strings.ToLower(local), ".", "")
}

// parseIntField parses a numeric text field the legacy exports store as
// either an integer or a float; anything unparseable counts as zero.
func parseIntField(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// intOrNull renders a numeric text field as an integer literal or NULL.
func intOrNull(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NULL"
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "NULL"
	}
	return strconv.Itoa(int(f))
}

// parseJSONValue decodes a JSON text field. Legacy exports sometimes hold
// Python-repr style single-quoted JSON, so a second attempt swaps quote
// characters before giving up.
func parseJSONValue(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v, true
	}
	swapped := strings.ReplaceAll(s, "'", `"`)
	if err := json.Unmarshal([]byte(swapped), &v); err == nil {
		return v, true
	}
	return nil, false
}

// parseJSONMap decodes a JSON object field, returning nil when the value
// is missing, malformed, or not an object.
func parseJSONMap(s string) map[string]any {
	v, ok := parseJSONValue(s)
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

var zonedLayouts = map[string]bool{
	time.RFC3339Nano:                      true,
	"2006-01-02 15:04:05.999999999-07:00": true,
	"2006-01-02 15:04:05.999999999-07":    true,
}

// parseTimestamp parses the timestamp formats seen in legacy exports and
// reports whether the input carried a zone offset.
func parseTimestamp(s string) (t time.Time, zoned bool, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, zonedLayouts[layout], true
		}
	}
	return time.Time{}, false, false
}

// ParseTimestamp parses the timestamp formats seen in legacy exports.
// It reports false for empty or unparseable values.
func ParseTimestamp(s string) (time.Time, bool) {
	t, _, ok := parseTimestamp(s)
	return t, ok
}

// isoTimestamp renders a parsed timestamp in ISO-8601 form, keeping the
// offset only when the source value had one.
func isoTimestamp(t time.Time, zoned bool) string {
	if zoned {
		return t.Format("2006-01-02T15:04:05.999999-07:00")
	}
	return t.Format("2006-01-02T15:04:05.999999")
}

// timestampSQL renders a raw timestamp field as a quoted ISO literal, or
// now() when the field is empty or unparseable.
func timestampSQL(s string) string {
	t, zoned, ok := parseTimestamp(s)
	if !ok {
		return "now()"
	}
	return "'" + isoTimestamp(t, zoned) + "'"
}
