package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	// Max requests per window
	Max int
	// Window duration
	Window time.Duration
	// KeyGenerator picks the bucket for a request. Defaults to the client IP.
	KeyGenerator func(c *fiber.Ctx) string
	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Max:    60,
		Window: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Now: time.Now,
	}
}

// window tracks the fixed window of one client
type window struct {
	count      int
	end        time.Time
	lastAccess time.Time
}

// RateLimiter is a fixed-window limiter keyed per client.
type RateLimiter struct {
	config  RateLimiterConfig
	windows map[string]*window
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.Max <= 0 {
		config.Max = defaults.Max
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = defaults.KeyGenerator
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}

	rl := &RateLimiter{
		config:  config,
		windows: make(map[string]*window),
		done:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.config.KeyGenerator(c)
		now := rl.config.Now()

		rl.mu.Lock()
		w, exists := rl.windows[key]
		if !exists || now.After(w.end) {
			w = &window{end: now.Add(rl.config.Window)}
			rl.windows[key] = w
		}
		w.count++
		w.lastAccess = now
		count := w.count
		end := w.end
		rl.mu.Unlock()

		remaining := max(rl.config.Max-count, 0)
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", end.Format(time.RFC3339))

		if count > rl.config.Max {
			retry := int(end.Sub(now).Seconds()) + 1
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			return domain.ErrRateLimitExceeded
		}

		return c.Next()
	}
}

// cleanup drops clients idle for two windows
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.prune(rl.config.Now())
		}
	}
}

func (rl *RateLimiter) prune(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.windows {
		if now.Sub(w.lastAccess) > 2*rl.config.Window {
			delete(rl.windows, key)
		}
	}
}
