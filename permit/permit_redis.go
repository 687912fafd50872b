package permit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisPermitPrefix = "permit/"

// RedisStore keeps grants as expiring keys. Consumption uses GETDEL, so the
// exactly-once property holds across multiple daemon instances.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	return &RedisStore{Client: rdb}, nil
}

func permitKey(channel, userID string) string {
	return redisPermitPrefix + channel + "/" + userID
}

func (s *RedisStore) Grant(ctx context.Context, channel, userID, grantedBy string, ttl time.Duration) error {
	return s.Client.Set(ctx, permitKey(channel, userID), grantedBy, ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, channel, userID string) (bool, error) {
	_, err := s.Client.GetDel(ctx, permitKey(channel, userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Active(ctx context.Context, channel, userID string) (bool, error) {
	_, err := s.Client.Get(ctx, permitKey(channel, userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
