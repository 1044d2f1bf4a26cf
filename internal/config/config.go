package config

import (
	"os"
	"strconv"
	"time"

	"datalab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig `validate:"required"`
	Upload    UploadConfig `validate:"required"`
	Database  DatabaseConfig
	Workers   WorkerConfig
	Profiling ProfilingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required"`
	APIPort string `validate:"required"`
	GinMode string
}

// UploadConfig holds file-intake limits
type UploadConfig struct {
	MaxBytes int64
}

// DatabaseConfig holds the optional audit-sink connection. When URL is
// empty the app runs with in-memory audit history only.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// WorkerConfig bounds concurrent analysis fan-out
type WorkerConfig struct {
	MaxConcurrent int64
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	// Load server configuration
	serverConfig := loadServerConfig()
	config.Server = *serverConfig

	// Load upload configuration
	uploadConfig := loadUploadConfig()
	config.Upload = *uploadConfig

	// Load database configuration
	dbConfig := loadDatabaseConfig()
	config.Database = *dbConfig

	// Load worker configuration
	workerConfig := loadWorkerConfig()
	config.Workers = *workerConfig

	// Load profiling configuration
	profilingConfig := loadProfilingConfig()
	config.Profiling = *profilingConfig

	// Validate required fields
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		APIPort: getEnvOrDefault("API_PORT", "8081"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadUploadConfig() *UploadConfig {
	return &UploadConfig{
		MaxBytes: getEnvInt64OrDefault("UPLOAD_MAX_BYTES", 50*1024*1024),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		MaxConcurrent: int64(getEnvIntOrDefault("MAX_CONCURRENT_ANALYSES", 4)),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Upload.MaxBytes <= 0 {
		return errors.ConfigInvalid("upload size limit must be positive")
	}
	if config.Workers.MaxConcurrent <= 0 {
		return errors.ConfigInvalid("worker concurrency must be positive")
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

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
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

// Duration parsing helper (for future use)
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
