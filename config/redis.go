package config

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis connects when REDIS_URL (or REDIS_URI/REDIS_ADDR) is set. It returns
// false without error when redis is not configured.
func InitRedis(s *Settings) (bool, error) {
	val := s.RedisURL
	if val == "" {
		return false, nil
	}

	if strings.HasPrefix(val, "redis://") || strings.HasPrefix(val, "rediss://") {
		opt, err := redis.ParseURL(val)
		if err != nil {
			return false, err
		}
		RedisClient = redis.NewClient(opt)
	} else {
		RedisClient = redis.NewClient(&redis.Options{Addr: val})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		_ = RedisClient.Close()
		RedisClient = nil
		return false, err
	}
	return true, nil
}
