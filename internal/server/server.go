// Package server wires the HTTP surface of oddsboard: the JSON proxy API,
// the embeddable overlay pages, the WebSocket push endpoint, and the
// Prometheus scrape target.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/metrics"
	"github.com/oddsboard/oddsboard/internal/server/handler"
	"github.com/oddsboard/oddsboard/internal/server/middleware"
	"github.com/oddsboard/oddsboard/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	RateLimit       int           // requests per window per client IP; 0 disables
	RateLimitWindow time.Duration // defaults to one second
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Proxy    *handler.ProxyHandler
	Trending *handler.TrendingHandler
	Resolve  *handler.ResolveHandler
	Overlay  *handler.OverlayHandler
}

// Server is the HTTP + WebSocket server for the odds overlay service.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (CORS, logging, rate limiting, metrics) applied.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Normalized Kalshi proxy endpoints.
	mux.HandleFunc("GET /api/kalshi/market/{ticker}", handlers.Proxy.Market)
	mux.HandleFunc("GET /api/kalshi/orderbook/{ticker}", handlers.Proxy.Orderbook)
	mux.HandleFunc("GET /api/kalshi/trades/{ticker}", handlers.Proxy.Trades)
	mux.HandleFunc("GET /api/kalshi/event/{eventTicker}", handlers.Proxy.Event)
	mux.HandleFunc("GET /api/kalshi/series-list", handlers.Proxy.SeriesList)
	mux.HandleFunc("GET /api/kalshi/trending", handlers.Trending.Trending)

	// URL and ticker resolution.
	mux.HandleFunc("GET /api/resolve", handlers.Resolve.Resolve)

	// Overlay widget surface.
	mux.HandleFunc("GET /overlay", handlers.Overlay.Page)
	mux.HandleFunc("GET /overlay/fragment", handlers.Overlay.Fragment)
	mux.HandleFunc("GET /api/overlay/{ticker}/state", handlers.Overlay.State)
	mux.HandleFunc("GET /api/embed-url", handlers.Overlay.EmbedURL)

	// WebSocket push.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Prometheus scrape target.
	mux.Handle("GET /metrics", metrics.Handler())

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = metrics.Middleware(h)
	if cfg.RateLimit > 0 && limiter != nil {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Handler exposes the fully wrapped handler chain, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
