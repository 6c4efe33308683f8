package geodex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "redis" or "memory"
	addrs    []string
	username string
	password string

	keyPrefix        string
	cursorTTL        time.Duration
	maxBatchSize     int
	maxCells         int
	samples          int
	pinZoomThreshold float64

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithRedis connects to Redis 8+ (or Redis Stack) at the given addresses.
func WithRedis(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = addrs
	})
}

// WithAuth sets the Redis ACL credentials.
func WithAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithMemory keeps everything in process. Useful for tests and demos.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.addrs = nil
	})
}

// WithKeyPrefix namespaces every key and index. Default "geodex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	})
}

// WithCursorTTL sets the keep-alive of paginated listing cursors.
func WithCursorTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		if ttl > 0 {
			c.cursorTTL = ttl
		}
	})
}

// WithMaxBatchSize caps the number of images per Index call.
func WithMaxBatchSize(n int) Option {
	return optionFunc(func(c *clientConfig) { c.maxBatchSize = n })
}

// WithMaxCells caps the number of buckets one aggregation may return.
func WithMaxCells(n int) Option {
	return optionFunc(func(c *clientConfig) { c.maxCells = n })
}

// WithSamples sets the default number of sample IDs kept per bucket.
func WithSamples(n int) Option {
	return optionFunc(func(c *clientConfig) { c.samples = n })
}

// WithPinZoomThreshold sets the zoom above which sites draw as boundaries.
func WithPinZoomThreshold(zoom float64) Option {
	return optionFunc(func(c *clientConfig) { c.pinZoomThreshold = zoom })
}

// WithLogger enables structured logging for SDK operations and background work.
// Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) { c.logger = l })
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) { c.metricsReg = reg })
}
