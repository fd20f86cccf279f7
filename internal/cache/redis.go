package cache

import (
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"bocado/internal/platform/logger"
)

// NewRedisClient builds a client from REDIS_ADDR / REDIS_PASSWORD / REDIS_DB.
func NewRedisClient(log *logger.Logger) *redis.Client {
	addr := getenv("REDIS_ADDR", "localhost:6379")
	pass := os.Getenv("REDIS_PASSWORD") // optional
	db := getint("REDIS_DB", 0)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	log.Info("redis client configured", "addr", addr, "db", db)
	return client
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
