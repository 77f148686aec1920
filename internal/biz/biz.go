package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewPrometheusRegisterer,
	NewMetricsCollector,
	NewBlacklistIndex,
	wire.Bind(new(BlacklistIndexer), new(*BlacklistIndex)),
	NewMatchEngine,
	NewFilterUsecase,
)
