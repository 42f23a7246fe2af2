package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dedup:sms:"

// RedisStore reserves the daily slot with SET NX EX. The key TTL doubles as
// eviction, so stale entries never need a sweep.
type RedisStore struct {
	cli       *redis.Client
	loc       *time.Location
	retention time.Duration
	now       func() time.Time
}

func NewRedisStore(cli *redis.Client, loc *time.Location, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = 48 * time.Hour
	}
	return &RedisStore{
		cli:       cli,
		loc:       loc,
		retention: retention,
		now:       time.Now,
	}
}

func (s *RedisStore) key(phone string) string {
	return keyPrefix + phone + ":" + DayKey(s.now(), s.loc)
}

func (s *RedisStore) CheckAndReserve(ctx context.Context, phone string) (Result, error) {
	ok, err := s.cli.SetNX(ctx, s.key(phone), s.now().Format(time.RFC3339), s.retention).Result()
	if err != nil {
		return AlreadySent, err
	}
	if !ok {
		return AlreadySent, nil
	}
	return Allowed, nil
}
