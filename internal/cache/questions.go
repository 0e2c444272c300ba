package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mind-engage/classroom-gateway/internal/exam"
)

const keyPrefix = "exam:questions:"

var _ exam.QuestionCache = (*Questions)(nil)

// Questions stores sanitized question sets in redis as JSON. A nil
// *Questions behaves as an always-empty cache.
type Questions struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log *zap.Logger
}

func NewQuestions(rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) *Questions {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Questions{rdb: rdb, ttl: ttl, log: log}
}

func Key(testID string) string { return keyPrefix + testID }

func (c *Questions) Get(ctx context.Context, testID string) ([]exam.QuestionView, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, Key(testID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.Warn("question cache read failed", zap.String("test_id", testID), zap.Error(err))
		return nil, false
	}
	var qs []exam.QuestionView
	if err := json.Unmarshal(raw, &qs); err != nil {
		c.log.Warn("question cache entry corrupt", zap.String("test_id", testID), zap.Error(err))
		_ = c.rdb.Del(ctx, Key(testID)).Err()
		return nil, false
	}
	return qs, true
}

func (c *Questions) Set(ctx context.Context, testID string, qs []exam.QuestionView) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(qs)
	if err != nil {
		c.log.Warn("question cache encode failed", zap.String("test_id", testID), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, Key(testID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("question cache write failed", zap.String("test_id", testID), zap.Error(err))
	}
}

// Invalidate drops the cached set for a test. exam.Service.PutTest calls it
// after every write.
func (c *Questions) Invalidate(ctx context.Context, testID string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, Key(testID)).Err()
}

// Ping reports whether redis is reachable.
func (c *Questions) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}
