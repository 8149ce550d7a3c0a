package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"linkboard/internal/analytics"
	"linkboard/internal/analytics/enrichment"
	"linkboard/internal/config"
	"linkboard/internal/database"
	httpdelivery "linkboard/internal/delivery/http"
	"linkboard/internal/domain"
	"linkboard/internal/infra/eventbus"
	"linkboard/internal/link"
	"linkboard/internal/redirect"
	"linkboard/internal/repository/cache"
	"linkboard/internal/repository/memory"
	"linkboard/internal/repository/sqlstore"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic("failed to load .env: " + err.Error())
	}
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger, err := cfg.App.NewLogger()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof)); err != nil {
		logger.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("linkboard stopped with error", zap.Error(err))
	}
}

// app is the fully wired service: HTTP handler plus the resources it owns.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires storage, events, use cases and the router. Background work
// stops when ctx is done.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	startedAt := time.Now()
	a := &app{}

	store, closeStore, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	// Domain events
	wmLogger := eventbus.NewZapLoggerAdapter(logger)
	bus := eventbus.NewEventBus(wmLogger)
	a.closers = append(a.closers, func() { bus.Close() })

	eventRouter, err := eventbus.NewRouter(bus, wmLogger)
	if err != nil {
		a.Close()
		return nil, err
	}
	eventbus.RegisterLoggingHandlers(eventRouter, logger)
	if cfg.App.MilestoneWebhookURL != "" {
		eventRouter.AddHandler(eventbus.NewMilestoneNotifier(
			&http.Client{Timeout: 5 * time.Second},
			cfg.App.MilestoneWebhookURL,
			cfg.Server.BaseURL,
			logger,
		))
	}
	go func() {
		if err := eventRouter.Run(ctx); err != nil {
			logger.Error("event router stopped", zap.Error(err))
		}
	}()
	<-eventRouter.Running()
	a.closers = append(a.closers, func() { eventRouter.Close() })

	// Click enrichment
	var countries enrichment.CountryResolver = enrichment.NoopCountryResolver{}
	if cfg.Storage.GeoIPDBPath != "" {
		geoIP, err := enrichment.NewGeoIPResolver(cfg.Storage.GeoIPDBPath)
		if err != nil {
			logger.Warn("GeoIP database not available, country resolution disabled",
				zap.String("path", cfg.Storage.GeoIPDBPath),
				zap.Error(err),
			)
		} else {
			logger.Info("GeoIP database loaded", zap.String("path", cfg.Storage.GeoIPDBPath))
			a.closers = append(a.closers, func() { geoIP.Close() })
			countries = geoIP
		}
	}

	// Use cases
	links := link.NewService(store, bus, logger)
	stats := analytics.NewService(store, logger, nil)

	var redirects httpdelivery.RedirectSource = redirect.NewResolver(store, logger,
		redirect.WithPreserveMethod(cfg.Redirect.PreserveMethod),
		redirect.WithEnricher(enrichment.NewEnricher(countries)),
		redirect.WithPublisher(bus),
	)
	if cfg.Redirect.ProbeMode() {
		prober, err := redirect.NewProber(cfg.Redirect.UpstreamURL, nil, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		redirects = prober
		logger.Info("serving redirects by probing upstream", zap.String("upstream_url", cfg.Redirect.UpstreamURL))
	}

	// HTTP
	system := httpdelivery.NewSystemMonitor(links, logger, startedAt, nil)
	handler := httpdelivery.NewHandler(links, stats, redirects, system, logger, cfg.Server.BaseURL, cfg.Redirect.StatsWindowDays)
	rateLimiter := httpdelivery.NewRateLimiter(cfg.Server.RateLimit)
	rateLimiter.StartCleanup(ctx)
	a.handler = httpdelivery.NewRouter(handler, logger, rateLimiter, cfg.Server.RequestTimeout)

	return a, nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("base_url", cfg.Server.BaseURL),
			zap.Int("rate_limit", cfg.Server.RateLimit),
			zap.Bool("preserve_method", cfg.Redirect.PreserveMethod),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openStore builds the link store selected by DATABASE_URL, wrapped in the
// Redis cache when REDIS_URL is set.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (domain.LinkStore, func(), error) {
	var (
		store   domain.LinkStore
		closers []func()
	)

	if cfg.InMemory() {
		logger.Warn("using in-memory store, links are lost on restart")
		store = memory.New()
	} else {
		dialect := database.DetectDialect(cfg.DatabaseURL)
		if dialect == database.DialectSQLite {
			if err := os.MkdirAll(filepath.Dir(cfg.DatabaseURL), 0o755); err != nil {
				return nil, nil, err
			}
		}

		db, dialect, err := database.OpenDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { db.Close() })

		if err := database.RunMigrations(db, dialect); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("database initialized", zap.String("dialect", string(dialect)))
		store = sqlstore.New(db, dialect)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, link cache disabled", zap.Error(err))
			rdb.Close()
		} else {
			logger.Info("link cache enabled", zap.Duration("ttl", cfg.CacheTTL))
			closers = append(closers, func() { rdb.Close() })
			store = cache.NewStore(store, cache.NewRedisLinkCache(rdb, cfg.CacheTTL, logger))
		}
	}

	return store, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}
