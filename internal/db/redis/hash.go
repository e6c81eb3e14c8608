package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/silverline/internal/db"
)

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// HIncrBy pipelines HINCRBY for every field, EXPIRE NX and HGETALL in one DoMulti round-trip.
func (s *Store) HIncrBy(
	ctx context.Context, key string, incrs []db.FieldIncr, ttl time.Duration,
) (map[string]string, error) {
	cmds := make([]rueidis.Completed, 0, len(incrs)+2)
	for _, in := range incrs {
		cmds = append(cmds, s.b().Hincrby().Key(key).Field(in.Field).Increment(in.By).Build())
	}
	if ttl > 0 {
		cmds = append(cmds, s.b().Expire().Key(key).Seconds(int64(ttl.Seconds())).Nx().Build())
	}
	cmds = append(cmds, s.b().Hgetall().Key(key).Build())

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			op := db.OpHIncrBy
			if i >= len(incrs) {
				op = db.OpExpire
			}
			return nil, &db.Error{Op: op, Err: fmt.Errorf("key %s: %w", key, err)}
		}
	}

	m, err := results[len(results)-1].AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	return m, nil
}
