package config

import (
	"fmt"
	"time"
)

// OffloadConfig is the immutable-per-operation snapshot of offload behavior.
// It is set on the controller before an operation starts and read by the
// node selector and the transfer collaborator.
type OffloadConfig struct {
	// Thresholds for triggering automatic offload
	MemoryThresholdPercent  float64 `mapstructure:"memory_threshold_percent" json:"memory_threshold_percent"`
	StorageThresholdPercent float64 `mapstructure:"storage_threshold_percent" json:"storage_threshold_percent"`
	MinByteDifference       int64   `mapstructure:"min_byte_difference" json:"min_byte_difference"`   // Minimum bytes worth offloading
	MaxBytesPerTransfer     int64   `mapstructure:"max_bytes_per_transfer" json:"max_bytes_per_transfer"`

	// Transfer shape
	SegmentSize            int64 `mapstructure:"segment_size" json:"segment_size"`             // Bytes per segment
	MaxConcurrentTransfers int   `mapstructure:"max_concurrent_transfers" json:"max_concurrent_transfers"` // Parallel segment transfers
	TransferBufferSize     int   `mapstructure:"transfer_buffer_size" json:"transfer_buffer_size"`

	// Timeouts; the transfer collaborator is responsible for honoring these
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
	TransferTimeout     time.Duration `mapstructure:"transfer_timeout" json:"transfer_timeout"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval" json:"health_check_interval"`

	// Retry policy for failed segments
	MaxRetries             int           `mapstructure:"max_retries" json:"max_retries"`
	RetryDelay             time.Duration `mapstructure:"retry_delay" json:"retry_delay"`
	RetryBackoffMultiplier float64       `mapstructure:"retry_backoff_multiplier" json:"retry_backoff_multiplier"`

	// Behavior flags
	AutoOffload       bool `mapstructure:"auto_offload" json:"auto_offload"`
	CompressTransfers bool `mapstructure:"compress_transfers" json:"compress_transfers"`
	VerifyIntegrity   bool `mapstructure:"verify_integrity" json:"verify_integrity"`
	PreferLocalRegion bool `mapstructure:"prefer_local_region" json:"prefer_local_region"`

	// Target admission limits for automatic node selection
	MinAvailableStorageBytes int64   `mapstructure:"min_available_storage_bytes" json:"min_available_storage_bytes"`
	MaxTargetCPUUsage        float64 `mapstructure:"max_target_cpu_usage" json:"max_target_cpu_usage"`
	MaxTargetMemoryUsage     float64 `mapstructure:"max_target_memory_usage" json:"max_target_memory_usage"`
}

// DefaultOffloadConfig returns the default offload configuration
func DefaultOffloadConfig() OffloadConfig {
	return OffloadConfig{
		MemoryThresholdPercent:  80.0,
		StorageThresholdPercent: 85.0,
		MinByteDifference:       100 * 1024 * 1024,
		MaxBytesPerTransfer:     10 * 1024 * 1024 * 1024,

		SegmentSize:            1 * 1024 * 1024,
		MaxConcurrentTransfers: 4,
		TransferBufferSize:     64 * 1024,

		ConnectTimeout:      30 * time.Second,
		TransferTimeout:     300 * time.Second,
		HealthCheckInterval: 10 * time.Second,

		MaxRetries:             3,
		RetryDelay:             1 * time.Second,
		RetryBackoffMultiplier: 2.0,

		AutoOffload:       true,
		CompressTransfers: true,
		VerifyIntegrity:   true,
		PreferLocalRegion: true,

		MinAvailableStorageBytes: 1 * 1024 * 1024 * 1024,
		MaxTargetCPUUsage:        80.0,
		MaxTargetMemoryUsage:     85.0,
	}
}

// Validate validates the offload configuration
func (c *OffloadConfig) Validate() error {
	if c.SegmentSize <= 0 {
		return fmt.Errorf("segment_size must be positive")
	}
	if c.MaxConcurrentTransfers <= 0 {
		return fmt.Errorf("max_concurrent_transfers must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if c.RetryBackoffMultiplier < 1.0 {
		return fmt.Errorf("retry_backoff_multiplier must be >= 1.0")
	}
	if c.MemoryThresholdPercent < 0 || c.MemoryThresholdPercent > 100 {
		return fmt.Errorf("memory_threshold_percent must be in [0, 100]")
	}
	if c.StorageThresholdPercent < 0 || c.StorageThresholdPercent > 100 {
		return fmt.Errorf("storage_threshold_percent must be in [0, 100]")
	}
	return nil
}
