// Package core holds shared configuration, domain row types and the error
// taxonomy used across the pipeline stages.
package core

import (
	"time"
)

type Config struct {
	Spotify   SpotifyConfig
	Warehouse WarehouseConfig
	Pipeline  PipelineConfig
	Server    ServerConfig
	Log       LogConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

type WarehouseConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

type PipelineConfig struct {
	Timezone          string
	IntervalHours     int
	MaxRetries        int
	RetryDelaySecs    int
	RequestsPerSecond float64
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Warehouse: WarehouseConfig{
			Path:         "./playlistpulse.db",
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
		Pipeline: PipelineConfig{
			Timezone:          "America/Denver",
			IntervalHours:     168,
			MaxRetries:        5,
			RetryDelaySecs:    300,
			RequestsPerSecond: 1,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
