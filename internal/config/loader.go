package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/redcomponent")
	}

	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix("REDC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 6650)
	v.SetDefault("server.node_id", "offload-default-node")
	v.SetDefault("server.region", "")
	v.SetDefault("server.data_dir", "/var/lib/redcomponent/data")

	// Etcd defaults
	v.SetDefault("etcd.endpoints", []string{})
	v.SetDefault("etcd.dial_timeout", "5s")
	v.SetDefault("etcd.node_prefix", "/redcomponent/nodes/")

	// Events defaults
	v.SetDefault("events.type", "memory")
	v.SetDefault("events.url", "nats://localhost:4222")
	v.SetDefault("events.redis_stream", "redcomponent")
	v.SetDefault("events.kafka_topic", "redcomponent.offload")

	// Offload defaults
	def := DefaultOffloadConfig()
	v.SetDefault("offload.memory_threshold_percent", def.MemoryThresholdPercent)
	v.SetDefault("offload.storage_threshold_percent", def.StorageThresholdPercent)
	v.SetDefault("offload.min_byte_difference", def.MinByteDifference)
	v.SetDefault("offload.max_bytes_per_transfer", def.MaxBytesPerTransfer)
	v.SetDefault("offload.segment_size", def.SegmentSize)
	v.SetDefault("offload.max_concurrent_transfers", def.MaxConcurrentTransfers)
	v.SetDefault("offload.transfer_buffer_size", def.TransferBufferSize)
	v.SetDefault("offload.connect_timeout", def.ConnectTimeout)
	v.SetDefault("offload.transfer_timeout", def.TransferTimeout)
	v.SetDefault("offload.health_check_interval", def.HealthCheckInterval)
	v.SetDefault("offload.max_retries", def.MaxRetries)
	v.SetDefault("offload.retry_delay", def.RetryDelay)
	v.SetDefault("offload.retry_backoff_multiplier", def.RetryBackoffMultiplier)
	v.SetDefault("offload.auto_offload", def.AutoOffload)
	v.SetDefault("offload.compress_transfers", def.CompressTransfers)
	v.SetDefault("offload.verify_integrity", def.VerifyIntegrity)
	v.SetDefault("offload.prefer_local_region", def.PreferLocalRegion)
	v.SetDefault("offload.min_available_storage_bytes", def.MinAvailableStorageBytes)
	v.SetDefault("offload.max_target_cpu_usage", def.MaxTargetCPUUsage)
	v.SetDefault("offload.max_target_memory_usage", def.MaxTargetMemoryUsage)

	// Transfer defaults
	v.SetDefault("transfer.max_message_size", 10*1024*1024)
	v.SetDefault("transfer.health_check_interval", "30s")

	// Auth defaults
	v.SetDefault("auth.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
	v.SetDefault("logging.time_format", "RFC3339")
}

// parseConfig unmarshals and validates the configuration
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
