package redis

import (
	"errors"
	"fmt"
	"time"

	"github.com/garyburd/redigo/redis"

	"github.com/solguard/solguard-api/internal/shared/config"
)

// GetPool builds a redigo pool with bounded dial/read/write timeouts so
// that callers blocked on an unavailable redis fail fast instead of
// hanging: an enqueue must behave like "job never started" on outage.
func GetPool(cfg config.Config) (*redis.Pool, error) {
	redisURL, err := GetURL(cfg)
	if err != nil {
		return nil, err
	}

	connTimeout := cfg.GetDuration("REDIS_CONN_TIMEOUT", 10*time.Second)

	return &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		TestOnBorrow: func(c redis.Conn, _ time.Time) error {
			_, pingErr := c.Do("PING")
			return pingErr
		},
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(redisURL,
				redis.DialConnectTimeout(connTimeout),
				redis.DialReadTimeout(connTimeout),
				redis.DialWriteTimeout(connTimeout),
			)
		},
	}, nil
}

func GetURL(cfg config.Config) (string, error) {
	if redisURL := cfg.GetString("REDIS_URL"); redisURL != "" {
		return redisURL, nil
	}

	host := cfg.GetString("REDIS_HOST")
	password := cfg.GetString("REDIS_PASSWORD")
	if host == "" || password == "" {
		return "", errors.New("no REDIS_URL or REDIS_{HOST,PASSWORD} in config")
	}

	return fmt.Sprintf("redis://h:%s@%s", password, host), nil
}
