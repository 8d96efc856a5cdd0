package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Events   EventsConfig   `mapstructure:"events"`
	Offload  OffloadConfig  `mapstructure:"offload"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
	NodeID   string `mapstructure:"node_id"`   // Identity of the local node
	Region   string `mapstructure:"region"`    // Region of the local node, used for region-affine selection
	DataDir  string `mapstructure:"data_dir"`  // Directory holding offloadable data blobs
}

// EtcdConfig represents etcd configuration for the node registry
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	NodePrefix  string        `mapstructure:"node_prefix"` // Key prefix under which node snapshots live
}

// EventsConfig represents offload-event broker configuration
type EventsConfig struct {
	Type     string `mapstructure:"type"`     // Broker type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Broker URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`     // Redis database number (default: 0)
	RedisStream string `mapstructure:"redis_stream"` // Redis stream prefix (default: "redcomponent")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"` // Kafka broker addresses
	KafkaTopic   string   `mapstructure:"kafka_topic"`   // Kafka topic for offload events
}

// TransferConfig represents gRPC transfer transport configuration
type TransferConfig struct {
	MaxMessageSize      int           `mapstructure:"max_message_size"`      // Max gRPC message size in bytes
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"` // Connection pool health check interval
}

// AuthConfig represents API authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Offload.Validate(); err != nil {
		return fmt.Errorf("offload config: %w", err)
	}
	if err := c.Transfer.Validate(); err != nil {
		return fmt.Errorf("transfer config: %w", err)
	}
	return nil
}

// Validate validates the server configuration
func (s *ServerConfig) Validate() error {
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be in [1, 65535], got %d", s.HTTPPort)
	}
	if s.NodeID == "" {
		return fmt.Errorf("node_id is required")
	}
	return nil
}

// Validate validates the transfer configuration
func (t *TransferConfig) Validate() error {
	if t.MaxMessageSize <= 0 {
		return fmt.Errorf("max_message_size must be positive")
	}
	if t.HealthCheckInterval <= 0 {
		return fmt.Errorf("health_check_interval must be positive")
	}
	return nil
}
