package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNilLockerRunsWithoutRedis(t *testing.T) {
	locker := NewLocker(nil)
	assert.False(t, locker.Enabled())

	called := false
	ran, err := locker.WithLock(context.Background(), "reconcile", time.Minute, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, called)
}

func TestLockerValidatesArguments(t *testing.T) {
	var locker *Locker
	_, _, err := locker.TryLock(context.Background(), "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyLockKey)
	_, _, err = locker.TryLock(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrInvalidLockTTL)
	assert.NoError(t, locker.Release(context.Background(), "k", "token"))
}

func TestWithLockPropagatesError(t *testing.T) {
	var locker *Locker
	boom := errors.New("boom")
	ran, err := locker.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return boom })
	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)
}

func TestLoginLimiterDisabledAdmitsEverything(t *testing.T) {
	limiter := NewLoginLimiter(config.Config{}, nil, zap.NewNop())
	assert.False(t, limiter.Enabled())
	for i := 0; i < 20; i++ {
		assert.True(t, limiter.Allow(context.Background(), "10.0.0.1").Allowed)
	}
	assert.Equal(t, 0.2, limiter.rate)
	assert.Equal(t, 5, limiter.burst)
}

func TestTokenBucketNotConfigured(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrLimiterNotConfigured)
}

func TestParseBucketReply(t *testing.T) {
	allowed, err := parseBucketReply([]interface{}{int64(1), "3.5", int64(1_700_000_000_000)}, 1, 5)
	require.NoError(t, err)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 3, allowed.Remaining)
	assert.Equal(t, 5, allowed.Limit)
	assert.Zero(t, allowed.RetryAfter)

	denied, err := parseBucketReply([]interface{}{int64(0), "0.5", int64(1_700_000_000_000)}, 0.5, 5)
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
	assert.Equal(t, time.Second, denied.RetryAfter)

	_, err = parseBucketReply([]interface{}{int64(1)}, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidScriptReply)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 50*time.Second, defaultBucketTTL(0.2, 5))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 0))
}
