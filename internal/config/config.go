// Package config loads and validates the gateway edge process's runtime
// configuration: listen address, message broker, capacity limits, and
// cgroup-aware CPU safety thresholds.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all edge process configuration.
//
//	env: Environment variable name
//	envDefault: Default value if not set
type Config struct {
	// Server basics
	Addr       string `env:"EDGE_ADDR" envDefault:":3002"`
	NATSURL    string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	BroadcastSubject string `env:"EDGE_BROADCAST_SUBJECT" envDefault:"game.decay"`

	// Resource limits (from container)
	CPULimit    float64 `env:"EDGE_CPU_LIMIT" envDefault:"1.0"`
	MemoryLimit int64   `env:"EDGE_MEMORY_LIMIT" envDefault:"536870912"` // 512MB

	// Capacity
	MaxConnections int `env:"EDGE_MAX_CONNECTIONS" envDefault:"500"`

	// Rate limiting
	MaxBroadcastRate int `env:"EDGE_MAX_BROADCAST_RATE" envDefault:"20"`
	MaxGoroutines    int `env:"EDGE_MAX_GOROUTINES" envDefault:"1000"`

	// Per-connection inbound message rate limiting
	MessageBurstPerConn int     `env:"EDGE_MESSAGE_BURST_PER_CONN" envDefault:"20"`
	MessageRatePerConn  float64 `env:"EDGE_MESSAGE_RATE_PER_CONN" envDefault:"5.0"`

	// CPU Safety Thresholds (Container-Aware)
	//
	// Relative to CONTAINER CPU ALLOCATION, not host CPU. The system uses
	// container-aware cgroup measurement when running in Docker/K8s.
	CPURejectThreshold float64 `env:"EDGE_CPU_REJECT_THRESHOLD" envDefault:"75.0"` // Reject new connections above this %
	CPUPauseThreshold  float64 `env:"EDGE_CPU_PAUSE_THRESHOLD" envDefault:"80.0"`  // Pause broadcast fan-out above this %

	// Monitoring
	MetricsInterval time.Duration `env:"METRICS_INTERVAL" envDefault:"15s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// Load reads configuration from a .env file and environment variables.
// Priority: ENV vars > .env file > defaults.
//
// logger is optional; pass nil to log to stdout instead.
func Load(logger *zerolog.Logger) (*Config, error) {
	// In production (Docker), we use environment variables directly. In
	// development, .env file provides convenience. Missing is fine either
	// way.
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("No .env file found (using environment variables only)")
		} else {
			fmt.Println("Info: No .env file found (using environment variables only)")
		}
	} else if logger != nil {
		logger.Info().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if logger != nil {
		logger.Info().Msg("Configuration loaded and validated successfully")
	}
	return cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("EDGE_ADDR is required")
	}
	if c.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required")
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("EDGE_MAX_CONNECTIONS must be > 0, got %d", c.MaxConnections)
	}
	if c.MessageBurstPerConn < 1 {
		return fmt.Errorf("EDGE_MESSAGE_BURST_PER_CONN must be > 0, got %d", c.MessageBurstPerConn)
	}
	if c.MessageRatePerConn <= 0 {
		return fmt.Errorf("EDGE_MESSAGE_RATE_PER_CONN must be > 0, got %.1f", c.MessageRatePerConn)
	}
	if c.CPURejectThreshold < 0 || c.CPURejectThreshold > 100 {
		return fmt.Errorf("EDGE_CPU_REJECT_THRESHOLD must be 0-100, got %.1f", c.CPURejectThreshold)
	}
	if c.CPUPauseThreshold < 0 || c.CPUPauseThreshold > 100 {
		return fmt.Errorf("EDGE_CPU_PAUSE_THRESHOLD must be 0-100, got %.1f", c.CPUPauseThreshold)
	}
	if c.CPUPauseThreshold < c.CPURejectThreshold {
		return fmt.Errorf("EDGE_CPU_PAUSE_THRESHOLD (%.1f) must be >= EDGE_CPU_REJECT_THRESHOLD (%.1f)",
			c.CPUPauseThreshold, c.CPURejectThreshold)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "text": true, "pretty": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, text, pretty (got: %s)", c.LogFormat)
	}
	return nil
}

// Print logs configuration for debugging, human-readable.
func (c *Config) Print() {
	fmt.Println("=== Edge Configuration ===")
	fmt.Printf("Environment:       %s\n", c.Environment)
	fmt.Printf("Address:           %s\n", c.Addr)
	fmt.Printf("NATS URL:          %s\n", c.NATSURL)
	fmt.Printf("Broadcast Subject: %s\n", c.BroadcastSubject)
	fmt.Println("\n=== Resource Limits ===")
	fmt.Printf("CPU Limit:       %.1f cores\n", c.CPULimit)
	fmt.Printf("Memory Limit:    %d MB\n", c.MemoryLimit/(1024*1024))
	fmt.Printf("Max Connections: %d\n", c.MaxConnections)
	fmt.Println("\n=== Rate Limits ===")
	fmt.Printf("Broadcasts:      %d/sec\n", c.MaxBroadcastRate)
	fmt.Printf("Max Goroutines:  %d\n", c.MaxGoroutines)
	fmt.Printf("Msgs/conn:       %.1f/sec (burst %d)\n", c.MessageRatePerConn, c.MessageBurstPerConn)
	fmt.Println("\n=== Safety Thresholds ===")
	fmt.Printf("CPU Reject:      %.1f%%\n", c.CPURejectThreshold)
	fmt.Printf("CPU Pause:       %.1f%%\n", c.CPUPauseThreshold)
	fmt.Println("\n=== Logging ===")
	fmt.Printf("Level:           %s\n", c.LogLevel)
	fmt.Printf("Format:          %s\n", c.LogFormat)
	fmt.Println("==========================")
}

// Log logs configuration using structured logging (Loki-compatible).
func (c *Config) Log(logger zerolog.Logger) {
	logger.Info().
		Str("environment", c.Environment).
		Str("addr", c.Addr).
		Str("nats_url", c.NATSURL).
		Str("broadcast_subject", c.BroadcastSubject).
		Float64("cpu_limit", c.CPULimit).
		Int64("memory_limit_mb", c.MemoryLimit/(1024*1024)).
		Int("max_connections", c.MaxConnections).
		Int("max_broadcast_rate", c.MaxBroadcastRate).
		Int("max_goroutines", c.MaxGoroutines).
		Float64("message_rate_per_conn", c.MessageRatePerConn).
		Int("message_burst_per_conn", c.MessageBurstPerConn).
		Float64("cpu_reject_threshold", c.CPURejectThreshold).
		Float64("cpu_pause_threshold", c.CPUPauseThreshold).
		Dur("metrics_interval", c.MetricsInterval).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("Edge configuration loaded")
}
