package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tickflow      TickflowConfig      `yaml:"tickflow"`
	Channels      ChannelsConfig      `yaml:"channels"`
	Bus           BusConfig           `yaml:"bus"`
	Feed          FeedConfig          `yaml:"feed"`
	Hub           HubConfig           `yaml:"hub"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Logging       LoggingConfig       `yaml:"logging"`
	Subscriptions []SubscriptionEntry `yaml:"subscriptions"`
}

type TickflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ChannelsConfig struct {
	RawBuffer int `yaml:"raw_buffer"`
}

type BusConfig struct {
	Buffer int `yaml:"buffer"`
}

type FeedConfig struct {
	Reconnect ReconnectConfig     `yaml:"reconnect"`
	Binance   BinanceSourceConfig `yaml:"binance"`
	Bybit     BybitSourceConfig   `yaml:"bybit"`
	Okx       OkxSourceConfig     `yaml:"okx"`
	Kucoin    KucoinSourceConfig  `yaml:"kucoin"`
}

type ReconnectConfig struct {
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
}

type BinanceSourceConfig struct {
	Enabled         bool          `yaml:"enabled"`
	WsURL           string        `yaml:"ws_url"`
	FundingInterval time.Duration `yaml:"funding_interval"`
	FundingRPS      float64       `yaml:"funding_rps"`
}

type BybitSourceConfig struct {
	Enabled      bool          `yaml:"enabled"`
	WsURL        string        `yaml:"ws_url"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

type OkxSourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	WsURL   string `yaml:"ws_url"`
}

type KucoinSourceConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BulletURL string `yaml:"bullet_url"`
}

type HubConfig struct {
	Addr           string        `yaml:"addr"`
	ThrottleWindow time.Duration `yaml:"throttle_window"`
	Depth          int           `yaml:"depth"`
	SendBuffer     int           `yaml:"send_buffer"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingPeriod     time.Duration `yaml:"ping_period"`
	PongWait       time.Duration `yaml:"pong_wait"`
}

type MetricsConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Addr       string           `yaml:"addr"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Region    string        `yaml:"region"`
	Namespace string        `yaml:"namespace"`
	Interval  time.Duration `yaml:"interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
	Report bool   `yaml:"report"`
}

// SubscriptionEntry is one symbol and the exchanges requested for it. The
// initial set normally comes from the out-of-scope persistence layer; the
// config file stands in for it at startup.
type SubscriptionEntry struct {
	Symbol    string   `yaml:"symbol"`
	Exchanges []string `yaml:"exchanges"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Channels: ChannelsConfig{RawBuffer: 1024},
		Bus:      BusConfig{Buffer: 256},
		Feed: FeedConfig{
			Reconnect: ReconnectConfig{
				BaseDelay: time.Second,
				MaxDelay:  30 * time.Second,
			},
		},
		Hub: HubConfig{
			ThrottleWindow: 300 * time.Millisecond,
			Depth:          50,
			SendBuffer:     256,
			WriteTimeout:   5 * time.Second,
			PingPeriod:     30 * time.Second,
			PongWait:       60 * time.Second,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override CloudWatch settings from environment variables if available
	if config.Metrics.CloudWatch.Enabled {
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Metrics.CloudWatch.Region = strings.TrimSpace(v)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Tickflow.Name == "" {
		return fmt.Errorf("tickflow.name is required")
	}

	if cfg.Tickflow.Version == "" {
		return fmt.Errorf("tickflow.version is required")
	}

	if cfg.Channels.RawBuffer <= 0 {
		return fmt.Errorf("channels.raw_buffer must be greater than 0")
	}

	if cfg.Bus.Buffer <= 0 {
		return fmt.Errorf("bus.buffer must be greater than 0")
	}

	if cfg.Hub.Addr == "" {
		return fmt.Errorf("hub.addr is required")
	}
	if cfg.Hub.ThrottleWindow <= 0 {
		return fmt.Errorf("hub.throttle_window must be greater than 0")
	}
	if cfg.Hub.Depth <= 0 {
		return fmt.Errorf("hub.depth must be greater than 0")
	}

	if cfg.Feed.Reconnect.BaseDelay <= 0 || cfg.Feed.Reconnect.MaxDelay < cfg.Feed.Reconnect.BaseDelay {
		return fmt.Errorf("feed.reconnect delays are invalid")
	}

	if cfg.Feed.Binance.Enabled && cfg.Feed.Binance.WsURL == "" {
		return fmt.Errorf("feed.binance.ws_url is required when binance is enabled")
	}
	if cfg.Feed.Bybit.Enabled && cfg.Feed.Bybit.WsURL == "" {
		return fmt.Errorf("feed.bybit.ws_url is required when bybit is enabled")
	}
	if cfg.Feed.Okx.Enabled && cfg.Feed.Okx.WsURL == "" {
		return fmt.Errorf("feed.okx.ws_url is required when okx is enabled")
	}
	if cfg.Feed.Kucoin.Enabled && cfg.Feed.Kucoin.BulletURL == "" {
		return fmt.Errorf("feed.kucoin.bullet_url is required when kucoin is enabled")
	}

	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Namespace == "" {
		return fmt.Errorf("metrics.cloudwatch.namespace is required when cloudwatch is enabled")
	}

	for i, sub := range cfg.Subscriptions {
		if sub.Symbol == "" {
			return fmt.Errorf("subscriptions[%d].symbol is required", i)
		}
		if len(sub.Exchanges) == 0 {
			return fmt.Errorf("subscriptions[%d].exchanges must not be empty", i)
		}
	}

	return nil
}
