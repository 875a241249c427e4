package cafematch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/db"
	dbRedis "github.com/kailas-cloud/cafematch/internal/db/redis"
	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/search/request"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
	"github.com/kailas-cloud/cafematch/internal/logger"
	"github.com/kailas-cloud/cafematch/internal/repository/catalog"
	"github.com/kailas-cloud/cafematch/internal/repository/preferences"
	"github.com/kailas-cloud/cafematch/internal/repository/relcache"
	openaiRel "github.com/kailas-cloud/cafematch/internal/transport/openai"
	healthuc "github.com/kailas-cloud/cafematch/internal/usecase/health"
	"github.com/kailas-cloud/cafematch/internal/usecase/relevance"
	searchuc "github.com/kailas-cloud/cafematch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the cafematch SDK entry point.
type Client struct {
	store     db.Store
	catalog   *catalog.Catalog
	prefs     *preferences.Store
	relevance *relevance.Client
	searchSvc *searchuc.Service
	health    *healthuc.Service
	debounce  time.Duration
	logger    *zap.Logger
	obs       *observer
	seq       atomic.Uint64
}

// New creates a Client. A catalog is required (WithCatalogFile or WithCafes).
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		policy:      Policy{OnMalformed: true},
		temperature: openaiRel.DefaultTemperature,
		debounce:    searchuc.DefaultDebounce,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	l := logger.OrNop(cfg.logger)

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	prefs := initialPreferences(cfg)
	if err := prefs.Validate(); err != nil {
		return nil, fmt.Errorf("cafematch: initial preferences: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.cacheAddrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.cacheAddrs, Password: cfg.cachePassword})
		if err != nil {
			return nil, fmt.Errorf("cafematch: create redis store: %w", err)
		}
		if err := s.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("cafematch: cache not ready: %w", err)
		}
		store = s
	}

	return wireClient(cfg, cat, prefs, store, obs, l), nil
}

func loadCatalog(cfg *clientConfig) (*catalog.Catalog, error) {
	switch {
	case cfg.cafes != nil:
		cat, err := catalog.New(cfg.cafes)
		if err != nil {
			return nil, fmt.Errorf("cafematch: %w", err)
		}
		return cat, nil
	case cfg.catalogPath != "":
		cat, err := catalog.Load(cfg.catalogPath)
		if err != nil {
			return nil, fmt.Errorf("cafematch: %w", err)
		}
		return cat, nil
	default:
		return nil, errors.New("cafematch: catalog required (use WithCatalogFile or WithCafes)")
	}
}

func initialPreferences(cfg *clientConfig) Preferences {
	if cfg.prefs != nil {
		return *cfg.prefs
	}
	return DefaultPreferences()
}

func wireClient(
	cfg *clientConfig, cat *catalog.Catalog, initial Preferences, store db.Store, obs *observer, l *zap.Logger,
) *Client {
	// nil interface, not a typed nil pointer, when no remote is configured.
	var remote score.Scorer
	var checker healthuc.RelevanceChecker
	if cfg.hasRemote {
		rc := openaiRel.NewRelevanceClient(&openaiRel.Config{
			APIKey:      cfg.apiKey,
			BaseURL:     cfg.baseURL,
			Model:       modelOrDefault(cfg.model),
			Temperature: cfg.temperature,
			MaxTokens:   cfg.maxTokens,
			Timeout:     cfg.timeout,
			Logger:      l,
		})
		remote = rc
		if store != nil {
			remote = relcache.New(rc, store, cfg.cacheTTL, obs.metrics.cache, l)
		}
	}

	rel := relevance.NewClient(remote, relevance.NewHeuristic(cfg.candidates), relevance.Policy{
		ForceFallback:       cfg.policy.ForceFallback,
		OnMalformed:         cfg.policy.OnMalformed,
		OnUnavailable:       cfg.policy.OnUnavailable,
		OnMissingCredential: cfg.policy.OnMissingCredential,
	}, l)
	if cfg.hasRemote {
		checker = rel
	}

	prefs := preferences.New(initial)

	var pinger healthuc.CachePinger
	if store != nil {
		pinger = store
	}

	return &Client{
		store:     store,
		catalog:   cat,
		prefs:     prefs,
		relevance: rel,
		searchSvc: searchuc.New(rel, cat, prefs, l),
		health:    healthuc.New(cat, pinger, checker),
		debounce:  cfg.debounce,
		logger:    l,
		obs:       obs,
	}
}

func modelOrDefault(m string) string {
	if m == "" {
		return "gpt-3.5-turbo"
	}
	return m
}

// Close releases all resources. Open sessions are not closed.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Search ranks the catalog against query once. A blank query yields empty results.
func (c *Client) Search(ctx context.Context, query string) (res Results, err error) {
	defer func(start time.Time) { c.obs.observe("search", start, err) }(time.Now())

	req, err := request.New(query, c.seq.Add(1))
	if errors.Is(err, domain.ErrEmptyQuery) {
		return Results{Matches: []Match{}}, nil
	}
	if err != nil {
		return Results{}, fmt.Errorf("search: %w", err)
	}

	set, err := c.searchSvc.Search(ctx, req)
	if err != nil {
		return Results{}, fmt.Errorf("search: %w", err)
	}
	return fromResultSet(set), nil
}

// NewSession starts a live search session. Close it when done.
func (c *Client) NewSession() *Session {
	return &Session{engine: searchuc.NewEngine(c.searchSvc, c.debounce, c.logger)}
}

// Preferences returns the current preferences.
func (c *Client) Preferences() Preferences { return c.prefs.Get() }

// SetPreferences replaces the preferences used by subsequent searches.
func (c *Client) SetPreferences(p Preferences) (err error) {
	defer func(start time.Time) { c.obs.observe("set_preferences", start, err) }(time.Now())
	if err := c.prefs.Set(p); err != nil {
		return fmt.Errorf("set preferences: %w", err)
	}
	return nil
}

// SetForceFallback switches heuristic-only scoring on or off.
func (c *Client) SetForceFallback(force bool) { c.relevance.SetForceFallback(force) }

// ForceFallback reports whether the remote relevance service is bypassed.
func (c *Client) ForceFallback() bool { return c.relevance.ForceFallback() }

// Cafes returns the whole catalog in order. Callers must not modify it.
func (c *Client) Cafes() []Cafe { return c.catalog.All() }

// Cafe returns one café by id.
func (c *Client) Cafe(id int) (Cafe, error) {
	cf, err := c.catalog.Get(id)
	if err != nil {
		return Cafe{}, fmt.Errorf("cafe: %w", err)
	}
	return cf, nil
}

// Recommended returns the catalog cafés admitted by the current preferences.
func (c *Client) Recommended() []Cafe {
	prefs := c.prefs.Get()
	all := c.catalog.All()
	out := make([]Cafe, 0, len(all))
	for i := range all {
		if prefs.Admits(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out
}
