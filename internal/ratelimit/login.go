package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/realtyledger/internal/config"
	"go.uber.org/zap"
)

const keyLoginAttempt = "realtyledger:login:%s"

// LoginLimiter throttles login attempts per client address. Without Redis it
// admits every attempt.
type LoginLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger
	rate   float64
	burst  int
}

func NewLoginLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *LoginLimiter {
	rate := cfg.LoginRateLimit
	if rate <= 0 {
		rate = 0.2
	}
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = 5
	}
	return &LoginLimiter{
		bucket: NewTokenBucket(client),
		log:    log.Named("ratelimit.login"),
		rate:   rate,
		burst:  burst,
	}
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow fails open when Redis errors so an outage never locks everyone out.
func (l *LoginLimiter) Allow(ctx context.Context, clientIP string) *RateLimitResult {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}
	}
	clientIP = strings.TrimSpace(clientIP)
	if clientIP == "" {
		clientIP = "unknown"
	}

	result, err := l.bucket.Allow(ctx, fmt.Sprintf(keyLoginAttempt, clientIP), l.rate, l.burst)
	if err != nil {
		l.log.Warn("login rate limit check failed", zap.String("client_ip", clientIP), zap.Error(err))
		return &RateLimitResult{Allowed: true}
	}
	return result
}
