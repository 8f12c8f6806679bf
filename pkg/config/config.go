package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Quotes struct {
		BaseURL       string        `yaml:"base_url"`
		APIKey        string        `yaml:"api_key"`
		Timeout       time.Duration `yaml:"timeout"`
		CacheTTL      time.Duration `yaml:"cache_ttl"`
		BatchSize     int           `yaml:"batch_size"`
		RateCapacity  float64       `yaml:"rate_capacity"`
		RatePerSecond float64       `yaml:"rate_per_second"`
	} `yaml:"quotes"`
	Oracles struct {
		PriceURL     string        `yaml:"price_url"`
		LiquidityURL string        `yaml:"liquidity_url"`
		GasURL       string        `yaml:"gas_url"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"oracles"`
	Feed struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Chains         []string      `yaml:"chains"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Routing struct {
		Chains          []string      `yaml:"chains"`
		MaxHops         int           `yaml:"max_hops"`
		BuildTimeout    time.Duration `yaml:"build_timeout"`
		StalenessWindow time.Duration `yaml:"staleness_window"`
		SweepInterval   time.Duration `yaml:"sweep_interval"`
		ProbeInterval   time.Duration `yaml:"probe_interval"`
		ProbeBatchSize  int           `yaml:"probe_batch_size"`
		PruneThreshold  float64       `yaml:"prune_threshold"`
		PruneBuffer     float64       `yaml:"prune_buffer"`
	} `yaml:"routing"`
	MEV struct {
		TierCostCaps  map[string]float64 `yaml:"tier_cost_caps"`
		TierMinEffect map[string]float64 `yaml:"tier_min_effectiveness"`
		MaxThreatProb float64            `yaml:"max_threat_probability"`
	} `yaml:"mev"`
	Timing struct {
		OptimalDelayMax time.Duration `yaml:"optimal_delay_max"`
	} `yaml:"timing"`
	Splitting struct {
		ImpactTrigger  float64       `yaml:"impact_trigger"`
		ThreePartsOver float64       `yaml:"three_parts_over"`
		FourPartsOver  float64       `yaml:"four_parts_over"`
		MinPartDelay   time.Duration `yaml:"min_part_delay"`
	} `yaml:"splitting"`
	Calibration struct {
		MaxSamplesPerTier int           `yaml:"max_samples_per_tier"`
		MinSamplesPerTier int           `yaml:"min_samples_per_tier"`
		Bins              int           `yaml:"bins"`
		Retention         time.Duration `yaml:"retention"`
		Redis             struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"calibration"`
	Outcomes struct {
		Kafka struct {
			Enabled    bool          `yaml:"enabled"`
			Brokers    []string      `yaml:"brokers"`
			Topic      string        `yaml:"topic"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
		} `yaml:"kafka"`
		Archive struct {
			Enabled      bool          `yaml:"enabled"`
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Database     string        `yaml:"database"`
			User         string        `yaml:"user"`
			Password     string        `yaml:"password"`
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"archive"`
	} `yaml:"outcomes"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.ApplyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("QUOTES_BASE_URL"); v != "" {
		c.Quotes.BaseURL = v
	}
	if v := os.Getenv("QUOTES_API_KEY"); v != "" {
		c.Quotes.APIKey = v
	}
	if v := os.Getenv("ROUTING_CHAINS"); v != "" {
		c.Routing.Chains = strings.Split(v, ",")
	}
	if v := os.Getenv("OUTCOME_KAFKA_BROKERS"); v != "" {
		c.Outcomes.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CALIBRATION_REDIS_ADDR"); v != "" {
		c.Calibration.Redis.Addr = v
	}

	return c, nil
}

// ApplyDefaults fills zero values with the tuned defaults. The routing and
// splitting thresholds are empirically motivated, not derived; they live here
// so operators can recalibrate them without a rebuild.
func (c *Config) ApplyDefaults() {
	if c.Quotes.CacheTTL == 0 {
		c.Quotes.CacheTTL = 30 * time.Second
	}
	if c.Quotes.BatchSize == 0 {
		c.Quotes.BatchSize = 4
	}
	if c.Quotes.Timeout == 0 {
		c.Quotes.Timeout = 10 * time.Second
	}
	if c.Quotes.RateCapacity == 0 {
		c.Quotes.RateCapacity = 10
	}
	if c.Quotes.RatePerSecond == 0 {
		c.Quotes.RatePerSecond = 5
	}
	if c.Oracles.Timeout == 0 {
		c.Oracles.Timeout = 5 * time.Second
	}
	if c.Routing.MaxHops == 0 {
		c.Routing.MaxHops = 4
	}
	if c.Routing.BuildTimeout == 0 {
		c.Routing.BuildTimeout = 3 * time.Second
	}
	if c.Routing.StalenessWindow == 0 {
		c.Routing.StalenessWindow = 10 * time.Minute
	}
	if c.Routing.SweepInterval == 0 {
		c.Routing.SweepInterval = 5 * time.Minute
	}
	if c.Routing.ProbeInterval == 0 {
		c.Routing.ProbeInterval = 30 * time.Minute
	}
	if c.Routing.ProbeBatchSize == 0 {
		c.Routing.ProbeBatchSize = 4
	}
	if c.Routing.PruneThreshold == 0 {
		c.Routing.PruneThreshold = 0.10
	}
	if c.Routing.PruneBuffer == 0 {
		c.Routing.PruneBuffer = 0.20
	}
	if c.MEV.MaxThreatProb == 0 {
		c.MEV.MaxThreatProb = 0.95
	}
	if len(c.MEV.TierCostCaps) == 0 {
		c.MEV.TierCostCaps = map[string]float64{
			"low": 10, "medium": 25, "high": 50, "critical": 100,
		}
	}
	if len(c.MEV.TierMinEffect) == 0 {
		c.MEV.TierMinEffect = map[string]float64{
			"low": 0.80, "medium": 0.90, "high": 0.95, "critical": 0.98,
		}
	}
	if c.Timing.OptimalDelayMax == 0 {
		c.Timing.OptimalDelayMax = 60 * time.Second
	}
	if c.Splitting.ImpactTrigger == 0 {
		c.Splitting.ImpactTrigger = 0.01
	}
	if c.Splitting.ThreePartsOver == 0 {
		c.Splitting.ThreePartsOver = 0.02
	}
	if c.Splitting.FourPartsOver == 0 {
		c.Splitting.FourPartsOver = 0.05
	}
	if c.Splitting.MinPartDelay == 0 {
		c.Splitting.MinPartDelay = 30 * time.Second
	}
	if c.Calibration.MaxSamplesPerTier == 0 {
		c.Calibration.MaxSamplesPerTier = 1000
	}
	if c.Calibration.MinSamplesPerTier == 0 {
		c.Calibration.MinSamplesPerTier = 50
	}
	if c.Calibration.Bins == 0 {
		c.Calibration.Bins = 10
	}
	if c.Calibration.Retention == 0 {
		c.Calibration.Retention = 7 * 24 * time.Hour
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Routing.Chains) == 0 {
		return fmt.Errorf("routing.chains cannot be empty")
	}
	if c.Quotes.BaseURL == "" {
		return fmt.Errorf("quotes.base_url is required")
	}
	if c.Quotes.BatchSize < 1 || c.Quotes.BatchSize > 8 {
		return fmt.Errorf("quotes.batch_size must be in [1,8], got %d", c.Quotes.BatchSize)
	}
	if c.Routing.PruneThreshold < 0 || c.Routing.PruneThreshold > 1 {
		return fmt.Errorf("routing.prune_threshold must be in [0,1]")
	}
	if c.Outcomes.Kafka.Enabled && len(c.Outcomes.Kafka.Brokers) == 0 {
		return fmt.Errorf("outcomes.kafka.brokers cannot be empty when enabled")
	}
	if c.Outcomes.Archive.Enabled && c.Outcomes.Archive.Host == "" {
		return fmt.Errorf("outcomes.archive.host is required when enabled")
	}
	return nil
}
