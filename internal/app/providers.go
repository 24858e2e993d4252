// Package app assembles the service from configuration. The dependency graph
// is declared in wire.go and generated into wire_gen.go.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"jobmate/recommendation-service/internal/cachestore"
	"jobmate/recommendation-service/internal/cluster"
	"jobmate/recommendation-service/internal/config"
	"jobmate/recommendation-service/internal/db"
	"jobmate/recommendation-service/internal/durable"
	"jobmate/recommendation-service/internal/listingcache"
	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/metrics"
	"jobmate/recommendation-service/internal/queue"
	"jobmate/recommendation-service/internal/ranking"
	"jobmate/recommendation-service/internal/recommend"
	"jobmate/recommendation-service/internal/retrieval"
	"jobmate/recommendation-service/internal/scheduler"
	"jobmate/recommendation-service/internal/scraper"
	"jobmate/recommendation-service/internal/server"
)

const maxPoolConns = 10

// App is the fully wired service.
type App struct {
	Config      *config.Config
	Logger      *logging.Logger
	Recommender *recommend.Service
	Cache       *listingcache.Manager
	Scheduler   *scheduler.Scheduler
	Server      *server.Server
}

// CacheOps is the subset needed by the offline cache commands. It does not
// touch Postgres.
type CacheOps struct {
	Cache      *listingcache.Manager
	Classifier *scraper.Classifier
}

// ─── Infrastructure ─────────────────────────────────────────────────────────

func provideKeywords(cfg *config.Config) (*config.Keywords, error) {
	return config.LoadKeywords(cfg.KeywordsFile)
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func provideCollector(reg *prometheus.Registry) *metrics.Collector {
	return metrics.NewCollector(reg)
}

func providePool(ctx context.Context, cfg *config.Config, log *logging.Logger) (*pgxpool.Pool, func(), error) {
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, maxPoolConns)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	log.Info("postgres connected")
	return pool, pool.Close, nil
}

func provideStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (cachestore.Store, func(), error) {
	if cfg.CacheBackend == config.CacheBackendMemory {
		log.Warn("using in-memory cache store; entries do not survive restarts")
		return cachestore.NewMemoryStore(nil), func() {}, nil
	}
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, cfg.RequestTimeout())
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	log.Info("redis connected")
	cleanup := func() {
		if err := rdb.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	return cachestore.NewRedisStore(rdb), cleanup, nil
}

// ─── Cache ──────────────────────────────────────────────────────────────────

func provideIndex(store cachestore.Store, kw *config.Keywords, cfg *config.Config) *cluster.Index {
	return cluster.NewIndex(store, cluster.ResolverFromKeywords(kw), cfg.CacheDuration())
}

func provideListingCache(store cachestore.Store, idx *cluster.Index, cfg *config.Config, log *logging.Logger, m *metrics.Collector) *listingcache.Manager {
	return listingcache.New(store, idx, listingcache.Options{
		TTL:       cfg.CacheDuration(),
		ChunkSize: cfg.BatchChunkSize,
		Logger:    log.With("component", "listingcache"),
		Metrics:   m,
	})
}

func provideQueue(store cachestore.Store, cfg *config.Config, log *logging.Logger) *queue.Overflow {
	return queue.New(store, cfg.OverflowTTL(), log.With("component", "queue"))
}

// ─── Retrieval and ranking ──────────────────────────────────────────────────

func provideFetcher(cfg *config.Config, cl *scraper.Classifier, kw *config.Keywords, log *logging.Logger, m *metrics.Collector) *scraper.Client {
	opts := []scraper.ClientOption{
		scraper.WithBaseURL(cfg.ScraperBaseURL),
		scraper.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		scraper.WithMaxRetries(cfg.MaxRetries),
		scraper.WithDelays(cfg.ItemDelay(), cfg.PageDelay()),
		scraper.WithClassifier(cl),
		scraper.WithLogger(log.With("component", "scraper")),
		scraper.WithMetrics(m),
	}
	if len(kw.RedFlags) > 0 {
		opts = append(opts, scraper.WithRedFlags(kw.RedFlags))
	}
	return scraper.NewClient(opts...)
}

func provideTiers(pool *pgxpool.Pool, cache *listingcache.Manager, idx *cluster.Index, f *scraper.Client, cfg *config.Config, log *logging.Logger) []retrieval.Tier {
	return []retrieval.Tier{
		retrieval.NewDurableTier(durable.NewPostingStore(pool, log.With("component", "durable"))),
		retrieval.NewCachedTier(cache, idx),
		retrieval.NewFreshTier(f, cache, cfg.MinResultsBeforeScrape, log.With("component", "retrieval")),
	}
}

func provideOrchestrator(tiers []retrieval.Tier, log *logging.Logger, m *metrics.Collector) *retrieval.Orchestrator {
	return retrieval.NewOrchestrator(tiers, log.With("component", "retrieval"), m)
}

func provideEngine(cfg *config.Config, log *logging.Logger, m *metrics.Collector) *ranking.Engine {
	w := ranking.Weights{
		Content:  cfg.ScoreWeightContent,
		Skill:    cfg.ScoreWeightSkill,
		History:  cfg.ScoreWeightHistory,
		Priority: cfg.ScoreWeightPriority,
	}
	return ranking.NewEngine(w, ranking.NewHashEmbedder(ranking.DefaultDimensions), log.With("component", "ranking"), m)
}

func provideRecommender(pool *pgxpool.Pool, orch *retrieval.Orchestrator, eng *ranking.Engine, q *queue.Overflow, log *logging.Logger) *recommend.Service {
	return recommend.NewService(
		durable.NewProfileStore(pool),
		durable.NewHistoryStore(pool),
		orch, eng, q,
		log.With("component", "recommend"),
	)
}

// ─── Surfaces ───────────────────────────────────────────────────────────────

func provideScheduler(cache *listingcache.Manager, cfg *config.Config, log *logging.Logger) *scheduler.Scheduler {
	return scheduler.New(cache, cfg.SweepInterval(), log)
}

func provideChecks(pool *pgxpool.Pool, store cachestore.Store) map[string]server.Check {
	return map[string]server.Check{
		"postgres": func(ctx context.Context) error { return durable.Ping(ctx, pool) },
		"cache":    store.Ping,
	}
}

func provideHealth(checks map[string]server.Check, log *logging.Logger) *server.HealthReporter {
	return server.NewHealthReporter(checks, log.With("component", "health"))
}

func provideHandler(cfg *config.Config, rec *recommend.Service, q *queue.Overflow, cache *listingcache.Manager,
	cl *scraper.Classifier, checks map[string]server.Check, reg *prometheus.Registry, log *logging.Logger) *server.Handler {
	return server.NewHandler(server.HandlerDeps{
		Recommender: rec,
		Related:     q,
		Cache:       cache,
		Catalog:     cl,
		Checks:      checks,
		Metrics:     metrics.Handler(reg),

		RecommendTimeout: cfg.RecommendTimeout(),
		Logger:           log.With("component", "http"),
	})
}

func provideServer(cfg *config.Config, h *server.Handler, hr *server.HealthReporter, log *logging.Logger) *server.Server {
	return server.New(cfg.Port, cfg.GRPCPort, h, hr, log.With("component", "server"))
}

func newApp(cfg *config.Config, log *logging.Logger, rec *recommend.Service, cache *listingcache.Manager,
	sched *scheduler.Scheduler, srv *server.Server) *App {
	return &App{Config: cfg, Logger: log, Recommender: rec, Cache: cache, Scheduler: sched, Server: srv}
}

func newCacheOps(cache *listingcache.Manager, cl *scraper.Classifier) *CacheOps {
	return &CacheOps{Cache: cache, Classifier: cl}
}
