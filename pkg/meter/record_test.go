package meter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordAccessors(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	r := Record{
		"name":    "meter-1",
		"count":   int64(42),
		"voltage": 231.5,
		"stamp":   now,
	}

	assert.Equal(t, "meter-1", r.String("name"))
	assert.Equal(t, "", r.String("missing"))

	assert.Equal(t, int64(42), r.Int64("count"))
	assert.Equal(t, int64(231), r.Int64("voltage")) // float64 truncated
	assert.Equal(t, int64(0), r.Int64("missing"))

	assert.Equal(t, 42.0, r.Float64("count")) // int64 widened
	assert.Equal(t, 231.5, r.Float64("voltage"))
	assert.Equal(t, 0.0, r.Float64("missing"))

	assert.Equal(t, now, r.Time("stamp"))
	assert.True(t, r.Time("missing").IsZero())

	assert.True(t, r.Has("name"))
	assert.False(t, r.Has("missing"))
}

func TestRecordAccessorsWrongType(t *testing.T) {
	r := Record{"name": "meter-1"}
	assert.Equal(t, int64(0), r.Int64("name"))
	assert.Equal(t, 0.0, r.Float64("name"))
	assert.True(t, r.Time("name").IsZero())
}
