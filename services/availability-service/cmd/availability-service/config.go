package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fahim-bhuiyan/trimslot/libs/config"
	"github.com/fahim-bhuiyan/trimslot/libs/httpx"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/availability"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/roster"
	"github.com/redis/go-redis/v9"
)

func mustInt(key string, fallback int) int {
	v, err := config.Int(key, fallback)
	if err != nil {
		panic(err)
	}
	return v
}

// parseShopHours resolves the shop-wide default opening window used by the
// assume_open roster fallback.
func parseShopHours(open, close string) (availability.Interval, error) {
	start, err := roster.ParseClock(open)
	if err != nil {
		return availability.Interval{}, err
	}
	end, err := roster.ParseClock(close)
	if err != nil {
		return availability.Interval{}, err
	}
	win := availability.Interval{Start: start, End: end}
	if !win.Valid() {
		return availability.Interval{}, fmt.Errorf("shop hours %s-%s are inverted or empty", open, close)
	}
	return win, nil
}

// publicRateLimiter protects the unauthenticated availability endpoints.
// With a Redis address configured the fixed window is shared across
// instances; otherwise each instance limits independently.
func publicRateLimiter(logger *slog.Logger) httpx.Middleware {
	limit := mustInt("RATE_LIMIT_PER_MINUTE", 120)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "availability").Middleware(logger, true)
	}
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}
