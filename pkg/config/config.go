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
	Polygon struct {
		APIKey           string        `yaml:"api_key"`
		RESTURL          string        `yaml:"rest_url"`
		StocksWSURL      string        `yaml:"stocks_ws_url"`
		CryptoWSURL      string        `yaml:"crypto_ws_url"`
		PingInterval     time.Duration `yaml:"ping_interval"`
		SnapshotCacheTTL time.Duration `yaml:"snapshot_cache_ttl"`
	} `yaml:"polygon"`
	Feed struct {
		BackoffBase  time.Duration `yaml:"backoff_base"`
		BackoffCap   time.Duration `yaml:"backoff_cap"`
		MaxAttempts  int           `yaml:"max_attempts"`
		FlushDelay   time.Duration `yaml:"flush_delay"`
		SilentWindow time.Duration `yaml:"silent_window"`
	} `yaml:"feed"`
	Layout struct {
		MinWidth  float64 `yaml:"min_width"`
		MinHeight float64 `yaml:"min_height"`
	} `yaml:"layout"`
	Search struct {
		CatalogPath string `yaml:"catalog_path"`
	} `yaml:"search"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Recorder struct {
		Enabled      bool          `yaml:"enabled"`
		Backend      string        `yaml:"backend"` // kafka or clickhouse
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
		MaxRPS       int           `yaml:"max_rps"`
		BufferSize   int           `yaml:"buffer_size"`
	} `yaml:"recorder"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		TicksTable       string        `yaml:"ticks_table"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
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

	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		c.Polygon.APIKey = v
	}
	if v := os.Getenv("RECORDER_BACKEND"); v != "" {
		c.Recorder.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port := v, 6379
		if i := strings.LastIndex(v, ":"); i > 0 {
			host = v[:i]
			fmt.Sscanf(v[i+1:], "%d", &port)
		}
		c.Redis.Host = host
		c.Redis.Port = port
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Polygon.APIKey == "" {
		return fmt.Errorf("polygon.api_key is required")
	}
	if c.Polygon.StocksWSURL == "" && c.Polygon.CryptoWSURL == "" {
		return fmt.Errorf("at least one of polygon.stocks_ws_url or polygon.crypto_ws_url is required")
	}
	if c.Recorder.Enabled {
		if c.Recorder.Backend != "kafka" && c.Recorder.Backend != "clickhouse" {
			return fmt.Errorf("recorder.backend must be 'kafka' or 'clickhouse', got '%s'", c.Recorder.Backend)
		}
	}
	return nil
}
