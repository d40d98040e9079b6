package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ServerConfig is the environment-driven configuration for the HTTP
// daemon. The shared Config (file-based) still supplies provider and
// screener settings; this covers only the serving surface.
type ServerConfig struct {
	Port       string
	ConfigPath string
	// WebSocket streaming
	WSEnabled        bool
	WSStreamInterval time.Duration
	// Synthetic fallback seed; 0 seeds from the clock.
	SyntheticSeed int64
}

func LoadServerConfig() (*ServerConfig, error) {
	wsIntervalStr := getEnvOrDefault("WS_STREAM_INTERVAL", "30s")
	wsInterval, err := time.ParseDuration(wsIntervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid WS_STREAM_INTERVAL: %w", err)
	}
	if wsInterval < time.Second {
		return nil, fmt.Errorf("WS_STREAM_INTERVAL must be at least 1s, got %s", wsInterval)
	}

	var seed int64
	if seedStr := os.Getenv("SYNTHETIC_SEED"); seedStr != "" {
		seed, err = strconv.ParseInt(seedStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SYNTHETIC_SEED: %w", err)
		}
	}

	return &ServerConfig{
		Port:             getEnvOrDefault("PORT", "8080"),
		ConfigPath:       os.Getenv("OPTIONSCAN_CONFIG"),
		WSEnabled:        getEnvOrDefault("WS_ENABLED", "true") == "true",
		WSStreamInterval: wsInterval,
		SyntheticSeed:    seed,
	}, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
