package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/lineup-studio/backend-lineup/internal/common"
)

// New builds a per-IP limiter backed by Redis, falling back to an in-process
// store when no client is supplied (tests, local runs without Redis).
func New(client *redis.Client, perMinute int64) (*limiter.Limiter, error) {
	if perMinute <= 0 {
		perMinute = 120
	}
	rate := limiter.Rate{Period: time.Minute, Limit: perMinute}
	if client == nil {
		return limiter.New(memory.NewStore(), rate), nil
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "ratelimit",
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit store: %w", err)
	}
	return limiter.New(store, rate), nil
}

// Middleware enforces the limit and exposes the usual X-RateLimit headers.
// Store errors fail open so a Redis hiccup never takes the API down.
func Middleware(instance *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if instance == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := instance.GetIPKey(r)
			lctx, err := instance.Get(r.Context(), key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			headers := w.Header()
			headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
			if lctx.Reached {
				retry := lctx.Reset - time.Now().Unix()
				if retry < 0 {
					retry = 0
				}
				headers.Set("Retry-After", strconv.FormatInt(retry, 10))
				common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
