package cafematch

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

// Policy decides when the local heuristic replaces the remote relevance service.
type Policy struct {
	ForceFallback       bool
	OnMalformed         bool
	OnUnavailable       bool
	OnMissingCredential bool
}

type clientConfig struct {
	catalogPath string
	cafes       []Cafe

	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	hasRemote   bool
	policy      Policy
	candidates  int
	prefs       *Preferences
	debounce    time.Duration

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithCatalogFile loads the café catalog from a JSON file.
func WithCatalogFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPath = path
	})
}

// WithCafes uses cafes as the catalog, in order.
func WithCafes(cafes []Cafe) Option {
	return optionFunc(func(c *clientConfig) {
		c.cafes = cafes
	})
}

// WithRelevance enables the remote relevance service. Empty baseURL and model
// use the OpenAI defaults. An empty apiKey still configures the service, so the
// missing credential surfaces as ErrMissingCredential unless the policy recovers it.
func WithRelevance(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.hasRemote = true
		c.apiKey = apiKey
		c.baseURL = baseURL
		c.model = model
	})
}

// WithRelevanceTemperature sets the sampling temperature of relevance requests.
// Default: 0.3.
func WithRelevanceTemperature(t float32) Option {
	return optionFunc(func(c *clientConfig) {
		c.temperature = t
	})
}

// WithRelevanceMaxTokens caps the relevance completion length. Zero uses the
// provider default.
func WithRelevanceMaxTokens(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTokens = max(n, 0)
	})
}

// WithRelevanceTimeout bounds each remote relevance call.
func WithRelevanceTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithPolicy sets the fallback policy. Default: recover malformed responses only.
func WithPolicy(p Policy) Option {
	return optionFunc(func(c *clientConfig) {
		c.policy = p
	})
}

// WithCandidateLimit sets how many catalog records the heuristic considers.
// Default: 10.
func WithCandidateLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.candidates = n
	})
}

// WithPreferences sets the initial preferences. Default: DefaultPreferences().
func WithPreferences(p Preferences) Option {
	return optionFunc(func(c *clientConfig) {
		c.prefs = &p
	})
}

// WithDebounce sets the Session keystroke quiet period. Zero evaluates every
// input immediately. Default: 800ms.
func WithDebounce(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.debounce = max(d, 0)
	})
}

// WithRedisCache caches remote relevance scores in Redis.
// A non-positive ttl uses one hour.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations, cache
// hits) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
