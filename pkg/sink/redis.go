// Package sink publishes decoded meter records to Redis, using the
// same hash-then-publish pipeline pattern the rest of this codebase's
// lineage uses for state propagation.
package sink

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/redis/go-redis/v9"

	"github.com/halvorlund/hanreader/pkg/meter"
)

// RedisSink writes a Record to a Redis hash and publishes a
// notification on the same key, one HSET per field in a single
// pipeline.
type RedisSink struct {
	client *redis.Client
	key    string
	ctx    context.Context

	timeFormat *strftime.Strftime
}

// defaultTimeLayout matches the ISO-8601-with-offset timestamps used
// throughout the glossary's example records.
const defaultTimeLayout = "%Y-%m-%dT%H:%M:%S%z"

// NewRedisSink connects to addr and returns a sink that writes every
// record's fields under key.
func NewRedisSink(addr, password string, db int, key string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("sink: connect to redis: %w", err)
	}

	format, err := strftime.New(defaultTimeLayout)
	if err != nil {
		return nil, fmt.Errorf("sink: compile timestamp format: %w", err)
	}

	return &RedisSink{client: client, key: key, ctx: ctx, timeFormat: format}, nil
}

// Publish writes every field of rec into the configured hash key and
// publishes a per-field notification, mirroring WriteAndPublishString.
func (s *RedisSink) Publish(rec meter.Record) error {
	pipe := s.client.Pipeline()

	names := make([]string, 0, len(rec))
	for name := range rec {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		text := s.fieldText(rec[name])
		pipe.HSet(s.ctx, s.key, name, text)
		pipe.Publish(s.ctx, s.key, fmt.Sprintf("%s:%s", name, text))
	}

	_, err := pipe.Exec(s.ctx)
	if err != nil {
		return fmt.Errorf("sink: publish record: %w", err)
	}
	return nil
}

func (s *RedisSink) fieldText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return s.timeFormat.FormatString(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Close releases the underlying Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
