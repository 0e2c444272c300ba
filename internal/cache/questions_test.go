package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/classroom-gateway/internal/exam"
)

func TestNilCacheIsEmpty(t *testing.T) {
	var c *Questions
	ctx := context.Background()
	c.Set(ctx, "t1", []exam.QuestionView{{ID: "q1"}})
	_, ok := c.Get(ctx, "t1")
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx, "t1"))
	assert.NoError(t, c.Ping(ctx))
	assert.Equal(t, "exam:questions:t1", Key("t1"))
}

func TestUnreachableRedisIsAMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	c := NewQuestions(rdb, time.Minute, nil)
	ctx := context.Background()

	c.Set(ctx, "t1", []exam.QuestionView{{ID: "q1"}})
	_, ok := c.Get(ctx, "t1")
	assert.False(t, ok)
	assert.Error(t, c.Ping(ctx))
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	c := NewQuestions(rdb, time.Minute, nil)
	ctx := context.Background()
	id := uuid.NewString()
	t.Cleanup(func() { _ = c.Invalidate(ctx, id) })

	want := []exam.QuestionView{{
		ID: "q1", Text: "Pick", Type: exam.MultipleChoice, Points: 2,
		Options: []exam.OptionView{{ID: "a", Text: "A"}, {ID: "b", Text: "B", Order: 1}},
	}}
	c.Set(ctx, id, want)
	got, ok := c.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, want, got)

	ttl, err := rdb.TTL(ctx, Key(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, rdb.Set(ctx, Key(id), "{not json", time.Minute).Err())
	_, ok = c.Get(ctx, id)
	assert.False(t, ok)
	n, err := rdb.Exists(ctx, Key(id)).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "corrupt entries are dropped")
}
