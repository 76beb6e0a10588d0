package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"mailmaster/internal/config"
	"mailmaster/internal/utils"
	"mailmaster/internal/utils/logger"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateCounter counts hits in a fixed window. *utils.RedisClient implements it.
type RateCounter interface {
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)
}

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Counter stores the windows. When nil, or when it fails, limits are
	// kept in process memory.
	Counter RateCounter

	// DefaultLimit applies to every route without an endpoint limit,
	// shared across routes per client.
	DefaultLimit  int
	DefaultWindow time.Duration

	// EndpointLimits are keyed by "METHOD:/route/pattern".
	EndpointLimits map[string]EndpointLimit

	Logger *logger.Logger
}

// EndpointLimit defines rate limits for specific endpoints
type EndpointLimit struct {
	Limit  int
	Window time.Duration
}

// CreateDefaultRateLimitConfig builds the limits from cfg. Login and
// registration get the stricter auth limit.
func CreateDefaultRateLimitConfig(redisClient *utils.RedisClient, cfg config.RateLimitConfig, log *logger.Logger) RateLimitConfig {
	auth := EndpointLimit{Limit: cfg.AuthPerMinute, Window: time.Minute}

	rc := RateLimitConfig{
		DefaultLimit:  cfg.PerMinute,
		DefaultWindow: time.Minute,
		EndpointLimits: map[string]EndpointLimit{
			"POST:/api/v1/auth/login":    auth,
			"POST:/api/v1/auth/register": auth,
		},
		Logger: log,
	}
	if redisClient != nil {
		rc.Counter = redisClient
	}
	return rc
}

// sweepInterval is how often idle in-memory limiters are dropped.
const sweepInterval = time.Minute

type memoryLimiter struct {
	limiter  *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

type rateLimiter struct {
	config RateLimitConfig
	now    func() time.Time

	mu        sync.Mutex
	memory    map[string]*memoryLimiter
	lastSweep time.Time
}

func newRateLimiter(config RateLimitConfig) *rateLimiter {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 120
	}
	if config.DefaultWindow <= 0 {
		config.DefaultWindow = time.Minute
	}
	return &rateLimiter{config: config, now: time.Now, memory: make(map[string]*memoryLimiter)}
}

// RateLimiter creates a new rate limiting middleware. It runs before
// authentication, so clients are told apart by IP address.
func RateLimiter(config RateLimitConfig) echo.MiddlewareFunc {
	rl := newRateLimiter(config)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bucket, limit := rl.limitFor(c)
			key := utils.RateLimitKey(getClientID(c), bucket)

			allowed, remaining, retryAfter := rl.check(c.Request().Context(), key, limit)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				h.Set("Retry-After", strconv.Itoa(seconds))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"message":     "Too Many Attempts.",
					"retry_after": seconds,
				})
			}

			return next(c)
		}
	}
}

// limitFor returns the bucket name and limit that apply to the request.
func (rl *rateLimiter) limitFor(c echo.Context) (string, EndpointLimit) {
	endpoint := getEndpointKey(c)
	if limit, ok := rl.config.EndpointLimits[endpoint]; ok && limit.Limit > 0 {
		if limit.Window <= 0 {
			limit.Window = time.Minute
		}
		return endpoint, limit
	}
	return "default", EndpointLimit{Limit: rl.config.DefaultLimit, Window: rl.config.DefaultWindow}
}

func (rl *rateLimiter) check(ctx context.Context, key string, limit EndpointLimit) (allowed bool, remaining int, retryAfter time.Duration) {
	if rl.config.Counter != nil {
		count, ttl, err := rl.config.Counter.IncrementRateLimit(ctx, key, limit.Window)
		if err == nil {
			remaining = limit.Limit - count
			if remaining < 0 {
				return false, 0, ttl
			}
			return true, remaining, 0
		}
		if rl.config.Logger != nil {
			rl.config.Logger.Warn("rate limit store unavailable, using memory: %v", err)
		}
	}
	return rl.checkMemory(key, limit)
}

func (rl *rateLimiter) checkMemory(key string, limit EndpointLimit) (bool, int, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	rl.sweep(now)
	entry, ok := rl.memory[key]
	if !ok {
		entry = &memoryLimiter{
			limiter: rate.NewLimiter(rate.Every(limit.Window/time.Duration(limit.Limit)), limit.Limit),
			window:  limit.Window,
		}
		rl.memory[key] = entry
	}
	entry.lastSeen = now
	rl.mu.Unlock()

	lim := entry.limiter
	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, 0, delay
	}
	return true, int(lim.TokensAt(now)), 0
}

// sweep drops limiters idle for a whole window. Their buckets have refilled,
// so a fresh limiter behaves the same. rl.mu must be held.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < sweepInterval {
		return
	}
	rl.lastSweep = now
	for key, entry := range rl.memory {
		if now.Sub(entry.lastSeen) >= entry.window {
			delete(rl.memory, key)
		}
	}
}

func getClientID(c echo.Context) string {
	return "ip:" + utils.GetIPAddress(c.Request())
}

// getEndpointKey uses the route pattern so /newsletters/:id counts as one
// endpoint whatever the id.
func getEndpointKey(c echo.Context) string {
	path := c.Path()
	if path == "" {
		path = c.Request().URL.Path
	}
	return fmt.Sprintf("%s:%s", c.Request().Method, path)
}
