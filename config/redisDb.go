package config

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedisWithRetry connects and sets the global Redis client + lock client.
// It keeps retrying with capped exponential backoff until ctx is done.
func ConnectRedisWithRetry(ctx context.Context, redisAddr string) error {
	if redisAddr == "" {
		redisAddr = "localhost:6379"
		logg.WithField("addr", redisAddr).Warn("REDIS_ADDRESS not set; using default")
	}

	var attempt int
	for {
		attempt++
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: "",
			DB:       0, // use default DB
			PoolSize: 20,
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			rdb = client
			locker = redislock.New(rdb)
			logg.WithFields(logrus.Fields{"attempt": attempt, "addr": redisAddr}).Info("connected to redis")
			return nil
		}
		_ = client.Close()

		sleep := backoff(attempt)
		logg.WithFields(logrus.Fields{
			"attempt": attempt,
			"addr":    redisAddr,
			"retry":   sleep.String(),
		}).Warn("failed to connect redis: " + err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func backoff(attempt int) time.Duration {
	sleep := time.Second * time.Duration(1<<min(attempt, 5))
	if sleep > 30*time.Second {
		sleep = 30 * time.Second
	}
	return sleep
}
