package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"RegionFeed/internal/domain/models"
)

// Replica roles.
const (
	RoleLeader   = "leader"
	RoleFollower = "follower"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"3000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Source struct {
		Type    string        `yaml:"type" default:"sql"`
		Driver  string        `yaml:"driver" default:"mysql"`
		DSN     string        `yaml:"dsn"`
		Query   string        `yaml:"query"`
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout" default:"30s"`
		// Pool settings of the sql source.
		MaxOpenConns    int           `yaml:"max_open_conns" default:"4"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"5m"`
		LazyConnect     bool          `yaml:"lazy_connect"`
	} `yaml:"source"`
	Refresh struct {
		Interval     time.Duration `yaml:"interval" default:"1h"`
		FetchTimeout time.Duration `yaml:"fetch_timeout" default:"2m"`
	} `yaml:"refresh"`
	Hub struct {
		WriteTimeout   time.Duration `yaml:"write_timeout" default:"10s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		ConnsPerMinute int           `yaml:"conns_per_minute" default:"60"`
	} `yaml:"hub"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix" default:"regionfeed"`
		PoolSize int           `yaml:"pool_size" default:"4"`
		LeaseTTL time.Duration `yaml:"lease_ttl"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled  bool     `yaml:"enabled"`
		Role     string   `yaml:"role" default:"leader"`
		Brokers  []string `yaml:"brokers"`
		Topic    string   `yaml:"topic" default:"regionfeed.snapshots"`
		GroupID  string   `yaml:"group_id"`
		Producer struct {
			Compression  string        `yaml:"compression" default:"gzip"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"10485760"`
		} `yaml:"producer"`
		Consumer struct {
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
			// StartOffset applies to a group without committed offsets: first or last.
			StartOffset string `yaml:"start_offset" default:"first"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Feed struct {
		URL               string        `yaml:"url" default:"ws://localhost:3000/ws"`
		ReconnectAttempts int           `yaml:"reconnect_attempts" default:"5"`
		ReconnectInterval time.Duration `yaml:"reconnect_interval" default:"3s"`
		ApplyDelay        time.Duration `yaml:"apply_delay" default:"50ms"`
		Region            string        `yaml:"region" default:"ALL"`
	} `yaml:"feed"`
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("SOURCE_DSN"); v != "" {
		c.Source.DSN = v
	}
	if v := getenv("SOURCE_DRIVER"); v != "" {
		c.Source.Driver = v
	}
	if v := getenv("SOURCE_URL"); v != "" {
		c.Source.URL = v
	}
	if v := getenv("REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REFRESH_INTERVAL: %w", err)
		}
		c.Refresh.Interval = d
	}
	if v := getenv("FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("KAFKA_ROLE"); v != "" {
		c.Kafka.Role = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	return nil
}

// ConsumesRelay reports whether this replica installs snapshots from
// kafka.topic: followers always, leaders when they share a Redis fetch lease
// and may lose it to another leader.
func (c *Config) ConsumesRelay() bool {
	if !c.Kafka.Enabled {
		return false
	}
	return c.Kafka.Role == RoleFollower || c.Redis.Enabled
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}
	switch c.Source.Type {
	case "sql":
		switch c.Source.Driver {
		case "mysql", "postgres", "sqlite", "clickhouse":
		default:
			return fmt.Errorf("source.driver must be one of mysql, postgres, sqlite, clickhouse, got '%s'", c.Source.Driver)
		}
	case "http":
		if c.Source.URL == "" && c.Kafka.Role != RoleFollower {
			return fmt.Errorf("source.url is required for http source")
		}
	default:
		return fmt.Errorf("source.type must be 'sql' or 'http', got '%s'", c.Source.Type)
	}
	if c.Kafka.Role != RoleLeader && c.Kafka.Role != RoleFollower {
		return fmt.Errorf("kafka.role must be '%s' or '%s', got '%s'", RoleLeader, RoleFollower, c.Kafka.Role)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Role == RoleLeader && c.Redis.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("redis.enabled shares the fetch lease between leaders and requires kafka.enabled")
	}
	if c.Kafka.Role == RoleFollower && !c.Kafka.Enabled {
		return fmt.Errorf("kafka.role 'follower' requires kafka.enabled")
	}
	if o := c.Kafka.Consumer.StartOffset; o != "first" && o != "last" {
		return fmt.Errorf("kafka.consumer.start_offset must be 'first' or 'last', got '%s'", o)
	}
	if c.Feed.ReconnectAttempts < 0 {
		return fmt.Errorf("feed.reconnect_attempts cannot be negative")
	}
	if !models.ValidRegion(c.Feed.Region) {
		return fmt.Errorf("feed.region must be 'ALL' or one of %s, got '%s'",
			strings.Join(models.DistrictCodes(), ", "), c.Feed.Region)
	}
	return nil
}
