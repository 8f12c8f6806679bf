//go:build wireinject
// +build wireinject

package di

import (
	"RouteForge/pkg/config"
	"RouteForge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// External data clients
		ProvideQuoteService,
		ProvideQuoteCache,
		ProvidePriceOracle,
		ProvideLiquiditySource,
		ProvideGasOracle,
		ProvideFeed,

		// Routing
		ProvideBuilder,
		ProvidePathFinder,

		// Risk and strategy
		ProvideAnalyzer,
		ProvideCalibrator,
		ProvideTracker,
		ProvideOptimizer,

		// Engine and surface
		ProvideEngine,
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
