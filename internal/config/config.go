// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (defaults to "./data", always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Walk      WalkConfig
	Audio     AudioConfig
	Retention RetentionConfig
	Export    ExportConfig
}

// WalkConfig holds the defaults applied to mashup requests that leave a
// parameter unset
type WalkConfig struct {
	Dt           float64
	Steps        int
	Noise        float64 // λ_noise
	Bio          float64 // λ_bio
	PathLength   int
	MemoryWindow int
}

// AudioConfig holds the stitching parameters handed to the audio collaborator
type AudioConfig struct {
	SampleRate  int
	CrossfadeMS int
}

// CrossfadeSamples converts the crossfade length to samples at SampleRate
func (a AudioConfig) CrossfadeSamples() int {
	return a.CrossfadeMS * a.SampleRate / 1000
}

// RetentionConfig controls cleanup of stored runs
type RetentionConfig struct {
	Days     int    // 0 disables cleanup
	Schedule string // cron expression with seconds field
}

// MaxAge returns the retention window as a duration
func (r RetentionConfig) MaxAge() time.Duration {
	return time.Duration(r.Days) * 24 * time.Hour
}

// ExportConfig holds the S3-compatible bucket runs are exported to
type ExportConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional, for R2/MinIO style endpoints
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether a bucket is configured
func (e ExportConfig) Enabled() bool {
	return e.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QMASHUP_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Walk: WalkConfig{
			Dt:           getEnvAsFloat("WALK_DT", 0.05),
			Steps:        getEnvAsInt("WALK_STEPS", 150),
			Noise:        getEnvAsFloat("WALK_NOISE", 0.15),
			Bio:          getEnvAsFloat("WALK_BIO", 0.3),
			PathLength:   getEnvAsInt("WALK_PATH_LENGTH", 20),
			MemoryWindow: getEnvAsInt("WALK_MEMORY_WINDOW", 3),
		},
		Audio: AudioConfig{
			SampleRate:  getEnvAsInt("AUDIO_SAMPLE_RATE", 22050),
			CrossfadeMS: getEnvAsInt("AUDIO_CROSSFADE_MS", 80),
		},
		Retention: RetentionConfig{
			Days:     getEnvAsInt("RUN_RETENTION_DAYS", 30),
			Schedule: getEnv("RUN_RETENTION_SCHEDULE", "0 0 3 * * *"), // Daily at 03:00
		},
		Export: ExportConfig{
			Bucket:          getEnv("EXPORT_BUCKET", ""),
			Region:          getEnv("EXPORT_REGION", "auto"),
			Endpoint:        getEnv("EXPORT_ENDPOINT", ""),
			AccessKeyID:     getEnv("EXPORT_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("EXPORT_SECRET_ACCESS_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the walk defaults and the stitching parameters
func (c *Config) Validate() error {
	w := c.Walk
	if w.Dt <= 0 {
		return fmt.Errorf("WALK_DT must be > 0, got %g", w.Dt)
	}
	if w.Steps < 1 {
		return fmt.Errorf("WALK_STEPS must be >= 1, got %d", w.Steps)
	}
	if w.Noise < 0 || w.Noise > 1 {
		return fmt.Errorf("WALK_NOISE must be in [0,1], got %g", w.Noise)
	}
	if w.Bio < 0 || w.Bio > 1 {
		return fmt.Errorf("WALK_BIO must be in [0,1], got %g", w.Bio)
	}
	if w.PathLength < 1 || w.PathLength > w.Steps {
		return fmt.Errorf("WALK_PATH_LENGTH must be in [1,%d], got %d", w.Steps, w.PathLength)
	}
	if w.MemoryWindow < 0 {
		return fmt.Errorf("WALK_MEMORY_WINDOW must be >= 0, got %d", w.MemoryWindow)
	}
	if c.Audio.SampleRate <= 0 || c.Audio.CrossfadeMS < 0 {
		return fmt.Errorf("invalid audio settings: sample rate %d, crossfade %dms", c.Audio.SampleRate, c.Audio.CrossfadeMS)
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("RUN_RETENTION_DAYS must be >= 0, got %d", c.Retention.Days)
	}
	// Credentials are optional: without them the default AWS chain is used
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
