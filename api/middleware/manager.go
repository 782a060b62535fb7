package middleware

import (
	"context"
	"storeadmin_server/structs"
	"time"

	"github.com/MonkyMars/gecho"
)

// RateLimiter counts requests per client and endpoint. CacheService implements it.
type RateLimiter interface {
	IncrementRateLimit(ctx context.Context, client, endpoint string, ttl time.Duration) (int, error)
}

type Middleware struct {
	cfg     *structs.Config
	logger  *gecho.Logger
	limiter RateLimiter
}

// NewMiddleware builds the shared middleware. limiter may be nil, which turns
// rate limiting off.
func NewMiddleware(cfg *structs.Config, logger *gecho.Logger, limiter RateLimiter) *Middleware {
	return &Middleware{
		cfg:     cfg,
		logger:  logger,
		limiter: limiter,
	}
}
