//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"jobmate/recommendation-service/internal/config"
	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/scraper"
)

var cacheSet = wire.NewSet(
	provideKeywords,
	provideRegistry,
	provideCollector,
	provideStore,
	provideIndex,
	provideListingCache,
	scraper.ClassifierFromKeywords,
)

// Initialize wires the full service: Postgres, cache, retrieval, ranking,
// scheduler and servers.
func Initialize(ctx context.Context, cfg *config.Config, log *logging.Logger) (*App, func(), error) {
	wire.Build(
		cacheSet,
		providePool,
		provideQueue,
		provideFetcher,
		provideTiers,
		provideOrchestrator,
		provideEngine,
		provideRecommender,
		provideScheduler,
		provideChecks,
		provideHealth,
		provideHandler,
		provideServer,
		newApp,
	)
	return nil, nil, nil
}

// InitializeCacheOps wires only the cache for the offline admin commands.
func InitializeCacheOps(ctx context.Context, cfg *config.Config, log *logging.Logger) (*CacheOps, func(), error) {
	wire.Build(
		cacheSet,
		newCacheOps,
	)
	return nil, nil, nil
}
