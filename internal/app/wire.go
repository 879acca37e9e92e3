package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/oddsboard/oddsboard/internal/cache"
	"github.com/oddsboard/oddsboard/internal/cache/redis"
	"github.com/oddsboard/oddsboard/internal/config"
	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/feed"
	"github.com/oddsboard/oddsboard/internal/overlay"
	"github.com/oddsboard/oddsboard/internal/platform/kalshi"
	"github.com/oddsboard/oddsboard/internal/server"
	"github.com/oddsboard/oddsboard/internal/server/handler"
	"github.com/oddsboard/oddsboard/internal/server/ws"
	"github.com/oddsboard/oddsboard/internal/trending"
)

// Dependencies bundles every component the running application needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Cache   domain.ResponseCache
	Limiter domain.RateLimiter
	// MemoryCache and MemoryLimiter are set only when Redis is disabled;
	// their sweep loops must be started by the caller.
	MemoryCache   *cache.Memory
	MemoryLimiter *cache.MemoryLimiter

	Kalshi   *kalshi.Client
	Manager  *overlay.Manager
	Renderer *overlay.Renderer
	Trending *trending.Service
	Hub      *ws.Hub
	Server   *server.Server
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Kalshi client ---
	client := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.Timeout.Duration)
	if cfg.Kalshi.ApiKey != "" {
		pemBytes, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: read kalshi private key: %w", err)
		}
		if err := client.SetRSAPrivateKey(cfg.Kalshi.ApiKey, pemBytes); err != nil {
			return nil, nil, fmt.Errorf("wire: kalshi private key: %w", err)
		}
		logger.Info("kalshi client configured for signed requests")
	}
	deps.Kalshi = client

	// --- Cache and rate limiter (Redis when enabled, in-process otherwise) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewResponseCache(redisClient)
		deps.Limiter = redis.NewRateLimiter(redisClient)
	} else {
		mem := cache.NewMemory()
		deps.Cache = mem
		deps.MemoryCache = mem
		lim := cache.NewMemoryLimiter()
		deps.Limiter = lim
		deps.MemoryLimiter = lim
	}

	// --- Overlay sessions ---
	deps.Manager = overlay.NewManager(feed.NewKalshiSource(client), overlay.ManagerConfig{
		PollInterval:  cfg.Overlay.PollInterval.Duration,
		HistoryWindow: cfg.Overlay.HistoryWindow.Duration,
		MaxPoints:     cfg.Overlay.MaxPoints,
		PurgeInterval: cfg.Overlay.PurgeInterval.Duration,
		IdleTTL:       cfg.Overlay.IdleTTL.Duration,
	}, logger)

	renderer, err := overlay.NewRenderer()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: renderer: %w", err)
	}
	deps.Renderer = renderer

	// --- Trending ---
	featured := trending.DefaultFeaturedEvents
	if len(cfg.Trending.FeaturedEvents) > 0 {
		featured = cfg.Trending.FeaturedEvents
	}
	deps.Trending = trending.NewService(client, featured, logger)

	// --- HTTP server ---
	deps.Hub = ws.NewHub(deps.Manager, logger)
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Manager, logger),
		Proxy:    handler.NewProxyHandler(client, deps.Cache, logger),
		Trending: handler.NewTrendingHandler(deps.Trending, deps.Cache, logger),
		Resolve:  handler.NewResolveHandler(client, logger),
		Overlay:  handler.NewOverlayHandler(deps.Manager, renderer, cfg.Server.BaseURL, logger),
	}
	deps.Server = server.NewServer(server.Config{
		Port:            cfg.Server.Port,
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimit:       cfg.Server.RateLimit,
		RateLimitWindow: cfg.Server.RateLimitWindow.Duration,
	}, handlers, deps.Hub, deps.Limiter, logger)

	return deps, cleanup, nil
}
