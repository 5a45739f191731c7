// Package config reads the application configuration from environment
// variables, overlaying the engine and capacity defaults.
package config

import (
	"os"
	"strconv"

	"godecide/domain/decision"
	"godecide/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Store    StoreConfig
	Ops      OpsConfig
	Service  ServiceConfig
	Limits   decision.Limits
	Engine   decision.Config
}

// DatabaseConfig holds database connection settings. An empty URL selects the
// file store instead.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds the API server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// StoreConfig holds file persistence settings
type StoreConfig struct {
	DataDir string
}

// OpsConfig holds the diagnostics server settings
type OpsConfig struct {
	Port    string
	Enabled bool
}

// ServiceConfig holds analysis service settings
type ServiceConfig struct {
	// EvalConcurrency bounds parallel per-alternative evaluation
	EvalConcurrency int64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Store: StoreConfig{
			DataDir: getEnvOrDefault("DATA_DIR", "./data"),
		},
		Ops: OpsConfig{
			Port:    getEnvOrDefault("PPROF_PORT", "6060"),
			Enabled: getEnvBoolOrDefault("PPROF_ENABLED", true),
		},
		Service: ServiceConfig{
			EvalConcurrency: int64(getEnvIntOrDefault("EVAL_CONCURRENCY", 4)),
		},
		Limits: loadLimits(),
		Engine: loadEngine(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadLimits() decision.Limits {
	l := decision.DefaultLimits()
	l.MaxAlternatives = getEnvIntOrDefault("MAX_ALTERNATIVES", l.MaxAlternatives)
	l.MaxLeaves = getEnvIntOrDefault("MAX_LEAVES", l.MaxLeaves)
	l.MaxNodes = getEnvIntOrDefault("MAX_NODES", l.MaxNodes)
	l.MaxTotalNodes = getEnvIntOrDefault("MAX_TOTAL_NODES", l.MaxTotalNodes)
	l.MaxStatements = getEnvIntOrDefault("MAX_STATEMENTS", l.MaxStatements)
	l.MinStatementWidth = getEnvFloatOrDefault("MIN_STATEMENT_WIDTH", l.MinStatementWidth)
	return l
}

func loadEngine() decision.Config {
	c := decision.DefaultConfig()
	c.Epsilon = getEnvFloatOrDefault("EPSILON", c.Epsilon)
	c.WarpEnabled = getEnvBoolOrDefault("WARP_ENABLED", c.WarpEnabled)
	c.WarpSoftDim = getEnvIntOrDefault("WARP_SOFT_DIM", c.WarpSoftDim)
	c.WarpHardDim = getEnvIntOrDefault("WARP_HARD_DIM", c.WarpHardDim)
	c.EmptySelection = decision.EmptySelectionPolicy(getEnvOrDefault("EMPTY_SELECTION", string(c.EmptySelection)))
	return c
}

func validateConfig(config *Config) error {
	if config.Service.EvalConcurrency < 1 {
		return errors.ConfigInvalid("EVAL_CONCURRENCY must be positive")
	}
	if config.Store.DataDir == "" && config.Database.URL == "" {
		return errors.ConfigInvalid("either DATABASE_URL or DATA_DIR must be set")
	}
	if err := config.Limits.Validate(); err != nil {
		return errors.Wrap(err, "capacity limits")
	}
	if err := config.Engine.Validate(); err != nil {
		return errors.Wrap(err, "engine settings")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
