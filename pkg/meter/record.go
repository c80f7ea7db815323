// Package meter holds the types shared across the framing readers and
// the COSEM decoder: the canonical Record produced by normalization
// and the Message sum type wrapping a framed Frame or Readout.
package meter

import "time"

// Record is a normalized meter reading keyed by canonical field name.
// Values are one of string, int64, float64, or time.Time.
type Record map[string]any

// String returns the named field as a string, or "" if absent or of
// another type.
func (r Record) String(name string) string {
	if v, ok := r[name].(string); ok {
		return v
	}
	return ""
}

// Int64 returns the named field as an int64. Float64 fields are
// truncated; absent or non-numeric fields return 0.
func (r Record) Int64(name string) int64 {
	switch v := r[name].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float64 returns the named field as a float64. Int64 fields are
// widened; absent or non-numeric fields return 0.
func (r Record) Float64(name string) float64 {
	switch v := r[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Time returns the named field as a time.Time, or the zero time if
// absent or of another type.
func (r Record) Time(name string) time.Time {
	if v, ok := r[name].(time.Time); ok {
		return v
	}
	return time.Time{}
}

// Has reports whether name is present in the record.
func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}
