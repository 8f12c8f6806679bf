package di

import (
	"context"
	"fmt"
	"time"

	"RouteForge/internal/calibration"
	domsvc "RouteForge/internal/domain/service"
	"RouteForge/internal/engine"
	"RouteForge/internal/handler/api"
	"RouteForge/internal/mev"
	"RouteForge/internal/repository"
	"RouteForge/internal/routing"
	icache "RouteForge/internal/service/cache"
	"RouteForge/internal/service/feed"
	"RouteForge/internal/service/oracle"
	"RouteForge/internal/service/quotes"
	"RouteForge/internal/strategy"
	pkgcache "RouteForge/pkg/cache"
	pkgch "RouteForge/pkg/clickhouse"
	"RouteForge/pkg/config"
	xhttp "RouteForge/pkg/http"
	pkgkafka "RouteForge/pkg/kafka"
	applogger "RouteForge/pkg/logger"
	"RouteForge/pkg/metrics"
	"RouteForge/pkg/server"
)

// ProvideLogger creates the application logger. Development gets the
// console format, everything else structured JSON.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	level := "info"
	if cfg.Environment == "development" {
		format = "console"
		level = "debug"
	}
	return applogger.New(&applogger.Config{
		Level:  level,
		Format: format,
		Output: "stdout",
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) domsvc.Metrics {
	if !cfg.Metrics.Enabled {
		return domsvc.NopMetrics{}
	}
	return metrics.New()
}

// ProvideQuoteService creates the rate-limited quote client.
func ProvideQuoteService(cfg *config.Config) domsvc.QuoteService {
	return quotes.NewClient(&quotes.ClientConfig{
		BaseURL:       cfg.Quotes.BaseURL,
		APIKey:        cfg.Quotes.APIKey,
		Timeout:       cfg.Quotes.Timeout,
		RateCapacity:  cfg.Quotes.RateCapacity,
		RatePerSecond: cfg.Quotes.RatePerSecond,
	})
}

// ProvideQuoteCache creates the shared quote TTL cache.
func ProvideQuoteCache(cfg *config.Config) *icache.QuoteCache {
	return icache.NewQuoteCache(cfg.Quotes.CacheTTL)
}

// ProvidePriceOracle creates the price data client.
func ProvidePriceOracle(cfg *config.Config, log *applogger.Logger) domsvc.PriceOracle {
	return oracle.NewPriceClient(cfg.Oracles.PriceURL, cfg.Oracles.Timeout, log)
}

// ProvideLiquiditySource creates the liquidity data client.
func ProvideLiquiditySource(cfg *config.Config, log *applogger.Logger) domsvc.LiquiditySource {
	return oracle.NewLiquidityClient(cfg.Oracles.LiquidityURL, cfg.Oracles.Timeout, log)
}

// ProvideGasOracle creates the gas price client. The concrete type is
// returned so the market feed can push observed samples into it.
func ProvideGasOracle(cfg *config.Config, log *applogger.Logger) *oracle.GasClient {
	return oracle.NewGasClient(cfg.Oracles.GasURL, cfg.Oracles.Timeout, log)
}

// FeedComponents carries the market feed plus its optional runner:
// the WebSocket feed needs a background goroutine, the static one does
// not.
type FeedComponents struct {
	Feed   domsvc.MarketFeed
	Runner interface{ Run(context.Context) }
	Closer func() error
}

// ProvideFeed creates the market-conditions feed.
func ProvideFeed(cfg *config.Config, log *applogger.Logger, gas *oracle.GasClient) *FeedComponents {
	if !cfg.Feed.Enabled {
		return &FeedComponents{Feed: feed.NewStatic()}
	}
	client := feed.New(cfg.Feed.WebSocketURL, cfg.Feed.Chains,
		cfg.Feed.ReconnectDelay, cfg.Feed.PingInterval, log, gas)
	return &FeedComponents{Feed: client, Runner: client, Closer: client.Close}
}

// ProvideBuilder creates the routing graph builder.
func ProvideBuilder(liquidity domsvc.LiquiditySource, prices domsvc.PriceOracle, log *applogger.Logger, m domsvc.Metrics) *routing.Builder {
	return routing.NewBuilder(liquidity, prices, log, m)
}

// ProvidePathFinder creates the route search component.
func ProvidePathFinder(cfg *config.Config, q domsvc.QuoteService, qc *icache.QuoteCache, log *applogger.Logger, m domsvc.Metrics) *routing.PathFinder {
	return routing.NewPathFinder(q, qc, log, m, routing.PathFinderConfig{
		MaxHops:        cfg.Routing.MaxHops,
		BatchSize:      cfg.Quotes.BatchSize,
		PruneThreshold: cfg.Routing.PruneThreshold,
		PruneBuffer:    cfg.Routing.PruneBuffer,
	})
}

// ProvideAnalyzer creates the MEV threat analyzer.
func ProvideAnalyzer(cfg *config.Config, fc *FeedComponents, log *applogger.Logger, m domsvc.Metrics) *mev.Analyzer {
	return mev.NewAnalyzer(mev.AnalyzerConfig{
		MaxThreatProbability: cfg.MEV.MaxThreatProb,
		Policies:             mev.TierPoliciesFromConfig(cfg.MEV.TierCostCaps, cfg.MEV.TierMinEffect),
	}, fc.Feed, log, m)
}

// ProvideCalibrator creates the confidence calibrator.
func ProvideCalibrator(cfg *config.Config) *calibration.ConfidenceCalibrator {
	return calibration.NewConfidenceCalibrator(calibration.CalibratorConfig{
		MaxSamplesPerTier:    cfg.Calibration.MaxSamplesPerTier,
		MinSamplesToActivate: cfg.Calibration.MinSamplesPerTier,
		Bins:                 cfg.Calibration.Bins,
	})
}

// ProvideTracker creates the outcome tracker.
func ProvideTracker(cfg *config.Config, c *calibration.ConfidenceCalibrator, log *applogger.Logger, m domsvc.Metrics) *calibration.OutcomeTracker {
	return calibration.NewOutcomeTracker(c, log, m, cfg.Calibration.Retention)
}

// ProvideOptimizer assembles the strategy optimizer and its parts.
func ProvideOptimizer(cfg *config.Config, fc *FeedComponents, gas *oracle.GasClient, c *calibration.ConfidenceCalibrator, tracker *calibration.OutcomeTracker, log *applogger.Logger) *strategy.Optimizer {
	selector := mev.NewSelector(mev.TierPoliciesFromConfig(cfg.MEV.TierCostCaps, cfg.MEV.TierMinEffect), log)
	timing := strategy.NewTimingOptimizer(strategy.TimingConfig{
		OptimalDelayMax: cfg.Timing.OptimalDelayMax,
	}, log)
	splitter := strategy.NewSplitter(strategy.SplitterConfig{
		ImpactTrigger: cfg.Splitting.ImpactTrigger,
		ThreePartsAt:  cfg.Splitting.ThreePartsOver,
		FourPartsAt:   cfg.Splitting.FourPartsOver,
		MinPartDelay:  cfg.Splitting.MinPartDelay,
	})
	scorer := strategy.NewConfidenceScorer(c)
	return strategy.NewOptimizer(selector, timing, splitter, scorer, tracker, gas, fc.Feed, log)
}

// ProvideCalibrationStore creates the Redis-backed calibration store,
// or nil when persistence is disabled.
func ProvideCalibrationStore(cfg *config.Config, log *applogger.Logger) (*calibration.Store, func() error, error) {
	if !cfg.Calibration.Redis.Enabled {
		return nil, nil, nil
	}
	redis, err := pkgcache.NewRedisCache(
		pkgcache.WithAddr(cfg.Calibration.Redis.Addr),
		pkgcache.WithPassword(cfg.Calibration.Redis.Password),
		pkgcache.WithDB(cfg.Calibration.Redis.DB),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("calibration redis: %w", err)
	}
	return calibration.NewStore(redis, log), redis.Close, nil
}

// ProvideArchive creates the ClickHouse outcome archive, or nil when
// archiving is disabled.
func ProvideArchive(cfg *config.Config, log *applogger.Logger) (*repository.OutcomeArchive, func() error, error) {
	if !cfg.Outcomes.Archive.Enabled {
		return nil, nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Outcomes.Archive.Host),
		pkgch.WithPort(cfg.Outcomes.Archive.Port),
		pkgch.WithDatabase(cfg.Outcomes.Archive.Database),
		pkgch.WithCredentials(cfg.Outcomes.Archive.User, cfg.Outcomes.Archive.Password),
		pkgch.WithTimeouts(cfg.Outcomes.Archive.DialTimeout, cfg.Outcomes.Archive.ReadTimeout, cfg.Outcomes.Archive.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("archive clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	archive, err := repository.NewOutcomeArchive(ctx, client, 50, log)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return archive, client.Close, nil
}

// ProvideEngine assembles the engine from every component above.
func ProvideEngine(
	cfg *config.Config,
	log *applogger.Logger,
	m domsvc.Metrics,
	q domsvc.QuoteService,
	builder *routing.Builder,
	pf *routing.PathFinder,
	gas *oracle.GasClient,
	fc *FeedComponents,
	analyzer *mev.Analyzer,
	optimizer *strategy.Optimizer,
	tracker *calibration.OutcomeTracker,
	calibrator *calibration.ConfidenceCalibrator,
) (*engine.Engine, error) {
	calibStore, calibClose, err := ProvideCalibrationStore(cfg, log)
	if err != nil {
		return nil, err
	}
	archive, archiveClose, err := ProvideArchive(cfg, log)
	if err != nil {
		return nil, err
	}

	var closers []func() error
	for _, c := range []func() error{fc.Closer, calibClose, archiveClose} {
		if c != nil {
			closers = append(closers, c)
		}
	}

	eng := engine.New(engine.Deps{
		Config:     cfg,
		Log:        log,
		Metrics:    m,
		Quotes:     q,
		Builder:    builder,
		PathFinder: pf,
		GasOracle:  gas,
		Feed:       fc.Feed,
		Analyzer:   analyzer,
		Optimizer:  optimizer,
		Tracker:    tracker,
		Calibrator: calibrator,
		CalibStore: calibStore,
		Archive:    archive,
		FeedRunner: fc.Runner,
		Closers:    closers,
	})

	if cfg.Outcomes.Kafka.Enabled {
		handler := engine.NewOutcomeHandler(eng, log)
		consumer, err := pkgkafka.NewConsumer(handler,
			pkgkafka.WithBrokers(cfg.Outcomes.Kafka.Brokers),
			pkgkafka.WithTopic(cfg.Outcomes.Kafka.Topic),
			pkgkafka.WithGroupID(cfg.Outcomes.Kafka.GroupID),
			pkgkafka.WithWorkers(cfg.Outcomes.Kafka.Workers),
			pkgkafka.WithRetry(cfg.Outcomes.Kafka.RetryMax, cfg.Outcomes.Kafka.BackoffMin, cfg.Outcomes.Kafka.BackoffMax),
		)
		if err != nil {
			return nil, fmt.Errorf("outcome consumer: %w", err)
		}
		eng.SetConsumer(consumer)
	}
	return eng, nil
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(eng *engine.Engine, log *applogger.Logger) xhttp.Handler {
	return api.NewEngineHandler(eng, log)
}

// ProvideApp creates the runnable application.
func ProvideApp(cfg *config.Config, log *applogger.Logger, eng *engine.Engine, handler xhttp.Handler) *server.App {
	return server.New(cfg, log, eng, handler)
}
