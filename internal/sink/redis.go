package sink

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/luki/sensorapp/internal/sensor"
)

// NewRedisClient returns a client and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return c, nil
}

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStream appends each record as one entry of a Redis stream. Stream
// entries are flat string maps, so numeric fields are formatted in their
// shortest exact form.
type RedisStream struct {
	client streamAdder
	stream string
	maxLen int64
}

// NewRedisStream writes to stream, trimming it to roughly maxLen entries
// when maxLen is positive.
func NewRedisStream(client streamAdder, stream string, maxLen int64) *RedisStream {
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

// Write implements Writer.
func (r *RedisStream) Write(ctx context.Context, rec sensor.Record) error {
	values := []interface{}{"type", rec.Type.String(), "date", rec.Date}
	for _, f := range rec.Fields() {
		values = append(values, f.Name, strconv.FormatFloat(f.Value, 'g', -1, 64))
	}
	args := &redis.XAddArgs{Stream: r.stream, Values: values}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}
