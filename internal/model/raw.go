package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// missingMarkers are string values sources use for "no value".
var missingMarkers = map[string]bool{"": true, "nan": true, "none": true, "null": true, "n/a": true}

// String returns the trimmed text value of key. Numbers are formatted
// without exponent so numeric ids survive. Missing markers yield "".
func (r RawRecord) String(key string) string {
	var s string
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	default:
		return ""
	}
	s = strings.TrimSpace(s)
	if missingMarkers[strings.ToLower(s)] {
		return ""
	}
	return s
}

// Present reports whether key carries a non-missing value.
func (r RawRecord) Present(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return !missingMarkers[strings.ToLower(strings.TrimSpace(s))]
	}
	return true
}

// Float returns key as a number, accepting numeric strings.
func (r RawRecord) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Bool returns key as a boolean, accepting "true"/"false"/"open"/"closed".
func (r RawRecord) Bool(key string) (bool, bool) {
	switch v := r[key].(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "open", "active":
			return true, true
		case "false", "0", "no", "closed", "inactive":
			return false, true
		}
	}
	return false, false
}
