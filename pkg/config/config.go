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
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		AlertsTopic  string   `yaml:"alerts_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port"`
		Database    string        `yaml:"database"`
		User        string        `yaml:"user"`
		Password    string        `yaml:"password"`
		DialTimeout time.Duration `yaml:"dial_timeout"`
		ReadTimeout time.Duration `yaml:"read_timeout"`
	} `yaml:"clickhouse"`
	Feed struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Token          string        `yaml:"token"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Crisis struct {
		TickInterval      time.Duration `yaml:"tick_interval"`
		HistoryCap        int           `yaml:"history_cap"`
		PersistedHistory  int           `yaml:"persisted_history"`
		PersistedAlerts   int           `yaml:"persisted_alerts"`
		DefaultConfidence float64       `yaml:"default_confidence"`
		Thresholds        struct {
			Crisis   float64 `yaml:"crisis"`
			Elevated float64 `yaml:"elevated"`
			Recovery float64 `yaml:"recovery"`
		} `yaml:"thresholds"`
	} `yaml:"crisis"`
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

	c.applyDefaults()

	// Validate required fields
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

	// Override with environment variables
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_ALERTS_TOPIC"); v != "" {
		c.Kafka.AlertsTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("FEED_WEBSOCKET_URL"); v != "" {
		c.Feed.WebSocketURL = v
	}
	if v := os.Getenv("FEED_TOKEN"); v != "" {
		c.Feed.Token = v
	}

	return c, nil
}

// applyDefaults fills zero-valued crisis knobs with product defaults.
func (c *Config) applyDefaults() {
	if c.Crisis.TickInterval <= 0 {
		c.Crisis.TickInterval = 30 * time.Second
	}
	if c.Crisis.HistoryCap <= 0 {
		c.Crisis.HistoryCap = 100
	}
	if c.Crisis.PersistedHistory <= 0 {
		c.Crisis.PersistedHistory = 20
	}
	if c.Crisis.PersistedAlerts <= 0 {
		c.Crisis.PersistedAlerts = 50
	}
	if c.Crisis.DefaultConfidence <= 0 {
		c.Crisis.DefaultConfidence = 0.85
	}
	if c.Crisis.Thresholds.Crisis <= 0 {
		c.Crisis.Thresholds.Crisis = 30
	}
	if c.Crisis.Thresholds.Elevated <= 0 {
		c.Crisis.Thresholds.Elevated = 20
	}
	if c.Crisis.Thresholds.Recovery <= 0 {
		c.Crisis.Thresholds.Recovery = 15
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "lvcop"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	t := c.Crisis.Thresholds
	if !(t.Crisis > t.Elevated && t.Elevated > t.Recovery) {
		return fmt.Errorf("crisis thresholds must be ordered crisis > elevated > recovery, got %.1f/%.1f/%.1f",
			t.Crisis, t.Elevated, t.Recovery)
	}
	if c.Crisis.DefaultConfidence > 1 {
		return fmt.Errorf("crisis.default_confidence must be within [0,1]")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.AlertsTopic == "" {
		return fmt.Errorf("kafka.alerts_topic is required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Feed.Enabled && c.Feed.WebSocketURL == "" {
		return fmt.Errorf("feed.websocket_url is required when feed is enabled")
	}
	return nil
}
