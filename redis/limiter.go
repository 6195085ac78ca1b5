package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/bucketgate/logger"
)

// Limiter keeps a sliding request window per key in a sorted set scored by
// arrival time, so every gateway replica draws from the same budget.
type Limiter struct {
	rdb    *goredis.Client
	prefix string
	log    *logger.Logger
}

// NewLimiter returns a limiter writing keys under prefix.
func NewLimiter(rdb *goredis.Client, prefix string, log *logger.Logger) *Limiter {
	return &Limiter{rdb: rdb, prefix: prefix, log: log}
}

func (l *Limiter) windowKey(key string) string {
	return l.prefix + "ratelimit:" + key
}

// Allow records one request for key at now and reports whether it fits in
// limit requests per window. A rejected request is not counted.
func (l *Limiter) Allow(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (bool, error) {
	if l.rdb == nil {
		return false, fmt.Errorf("redis limiter: client not started")
	}
	k := l.windowKey(key)
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", cutoff)
	pipe.ZAdd(ctx, k, goredis.Z{Score: float64(now.UnixMilli()), Member: member})
	card := pipe.ZCard(ctx, k)
	pipe.PExpire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("Rate limit store unavailable", logger.ErrorFields("ratelimit", err))
		return false, fmt.Errorf("redis limiter: %w", err)
	}

	if card.Val() <= int64(limit) {
		return true, nil
	}
	if err := l.rdb.ZRem(ctx, k, member).Err(); err != nil {
		l.log.Warn("Rate limit rollback failed", logger.ErrorFields("ratelimit", err))
	}
	return false, nil
}
