package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/silverline/internal/db"
	"github.com/kailas-cloud/silverline/internal/domain"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
	"github.com/kailas-cloud/silverline/internal/domain/usage/cost"
)

// Hash field names.
const (
	fieldText       = "text"
	fieldVoice      = "voice"
	fieldScreenshot = "screenshot"
	fieldScam       = "scam"
	fieldCost       = "cost_micros"
)

// hashStore is the consumer interface for the hash-backed store (ISP).
type hashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key string, incrs []db.FieldIncr, ttl time.Duration) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Redis keeps one hash per (user, day) in Redis or Valkey.
// Keys expire after ttl, so it never accumulates history.
type Redis struct {
	store  hashStore
	prefix string
	ttl    time.Duration
}

// NewRedis creates a hash-backed store. Keys look like {prefix}usage:{user}:{day}.
// ttl is the key lifetime (recommended: 48h).
func NewRedis(s hashStore, prefix string, ttl time.Duration) *Redis {
	return &Redis{store: s, prefix: prefix, ttl: ttl}
}

// GetOrCreate reads the record. A missing hash is a zeroed record; nothing is written.
func (r *Redis) GetOrCreate(ctx context.Context, userID string, day domusage.Day) (domusage.Record, error) {
	return r.Get(ctx, userID, day)
}

// Get reads the record. A missing hash is a zeroed record.
func (r *Redis) Get(ctx context.Context, userID string, day domusage.Day) (domusage.Record, error) {
	if err := validateKey(userID, day); err != nil {
		return domusage.Record{}, err
	}

	key := r.key(userID, day)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domusage.Record{}, fmt.Errorf("usage HGETALL %s: %w: %w", key, domain.ErrUsageTracking, err)
	}
	return decodeRecord(userID, day, m)
}

// Save overwrites every field of the record's hash.
func (r *Redis) Save(ctx context.Context, rec domusage.Record) error {
	if err := validateKey(rec.UserID, rec.Date); err != nil {
		return err
	}

	key := r.key(rec.UserID, rec.Date)
	if err := r.store.HSet(ctx, key, encodeRecord(rec)); err != nil {
		return fmt.Errorf("usage HSET %s: %w: %w", key, domain.ErrUsageTracking, err)
	}
	if err := r.store.Expire(ctx, key, r.ttl, true); err != nil {
		return fmt.Errorf("usage EXPIRE %s: %w: %w", key, domain.ErrUsageTracking, err)
	}
	return nil
}

// Increment bumps the counter for kind and the cost with HINCRBY. Concurrent
// increments are never lost.
func (r *Redis) Increment(
	ctx context.Context, userID string, day domusage.Day, kind domusage.Kind, c cost.Micros,
) (domusage.Record, error) {
	if err := validateKey(userID, day); err != nil {
		return domusage.Record{}, err
	}
	field, ok := kindField(kind)
	if !ok {
		return domusage.Record{}, fmt.Errorf("increment kind %q: %w", kind, domain.ErrUsageTracking)
	}

	key := r.key(userID, day)
	m, err := r.store.HIncrBy(ctx, key, []db.FieldIncr{
		{Field: field, By: 1},
		{Field: fieldCost, By: int64(c)},
	}, r.ttl)
	if err != nil {
		return domusage.Record{}, fmt.Errorf("usage HINCRBY %s: %w: %w", key, domain.ErrUsageTracking, err)
	}
	return decodeRecord(userID, day, m)
}

func (r *Redis) key(userID string, day domusage.Day) string {
	return r.prefix + "usage:" + userID + ":" + string(day)
}

func kindField(k domusage.Kind) (string, bool) {
	switch k {
	case domusage.KindText:
		return fieldText, true
	case domusage.KindVoice:
		return fieldVoice, true
	case domusage.KindScreenshot:
		return fieldScreenshot, true
	case domusage.KindScam:
		return fieldScam, true
	default:
		return "", false
	}
}

func encodeRecord(rec domusage.Record) map[string]string {
	return map[string]string{
		fieldText:       strconv.Itoa(rec.TextMessages),
		fieldVoice:      strconv.Itoa(rec.VoiceMessages),
		fieldScreenshot: strconv.Itoa(rec.ScreenshotAnalyses),
		fieldScam:       strconv.Itoa(rec.ScamDetections),
		fieldCost:       strconv.FormatInt(int64(rec.TotalCost), 10),
	}
}

func decodeRecord(userID string, day domusage.Day, m map[string]string) (domusage.Record, error) {
	rec := domusage.NewRecord(userID, day)
	counters := []struct {
		field string
		dst   *int
	}{
		{fieldText, &rec.TextMessages},
		{fieldVoice, &rec.VoiceMessages},
		{fieldScreenshot, &rec.ScreenshotAnalyses},
		{fieldScam, &rec.ScamDetections},
	}
	for _, c := range counters {
		raw, ok := m[c.field]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domusage.Record{}, fmt.Errorf("usage field %s parse: %w: %w", c.field, domain.ErrUsageTracking, err)
		}
		*c.dst = n
	}
	if raw, ok := m[fieldCost]; ok {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domusage.Record{}, fmt.Errorf("usage field %s parse: %w: %w", fieldCost, domain.ErrUsageTracking, err)
		}
		rec.TotalCost = cost.Micros(n)
	}
	return rec, nil
}
