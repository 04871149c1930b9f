package config

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the Redis client used for OTP state, the token
// blacklist, lockout flags and throttling, from the REDIS_* fields of cfg.
// Returns nil when the server is unreachable; callers fall back to the
// in-process store and disable throttling.
func NewRedisClient(cfg Config) *redis.Client {
	var tlsConf *tls.Config
	if cfg.RedisTLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
