// Package config loads application configuration from a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr       string `toml:"addr"`
	UploadDir  string `toml:"upload_dir"`
	ResultsDir string `toml:"results_dir"`
}

// DatabaseConfig holds inventory database settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// DetectionConfig holds change-detection pipeline settings.
type DetectionConfig struct {
	MinContourArea     int     `toml:"min_contour_area"`
	MaxDimension       int     `toml:"max_dimension"`
	CompressionQuality int     `toml:"compression_quality"`
	TotalRackUnits     int     `toml:"total_rack_units"`
	IntensityRatio     float64 `toml:"intensity_ratio"`
	OCREnabled         bool    `toml:"ocr_enabled"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Detection DetectionConfig `toml:"detection"`
	LogFile   string          `toml:"log_file"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			UploadDir:  "data/uploads",
			ResultsDir: "data/results",
		},
		Database: DatabaseConfig{
			Path: "data/inventory.db",
		},
		Detection: DetectionConfig{
			MinContourArea:     100,
			MaxDimension:       1920,
			CompressionQuality: 85,
			TotalRackUnits:     42,
			IntensityRatio:     1.2,
			OCREnabled:         true,
		},
		LogFile: "rackdiff.log",
	}
}

// Load reads configuration from a TOML file, applying defaults for
// anything the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration values that would break the pipeline.
func (c *Config) Validate() error {
	if c.Detection.MinContourArea < 0 {
		return fmt.Errorf("min_contour_area must be >= 0, got %d", c.Detection.MinContourArea)
	}
	if c.Detection.MaxDimension <= 0 {
		return fmt.Errorf("max_dimension must be > 0, got %d", c.Detection.MaxDimension)
	}
	if c.Detection.TotalRackUnits <= 0 {
		return fmt.Errorf("total_rack_units must be > 0, got %d", c.Detection.TotalRackUnits)
	}
	if c.Detection.IntensityRatio <= 0 {
		return fmt.Errorf("intensity_ratio must be > 0, got %v", c.Detection.IntensityRatio)
	}
	if c.Detection.CompressionQuality < 1 || c.Detection.CompressionQuality > 100 {
		return fmt.Errorf("compression_quality must be in 1..100, got %d", c.Detection.CompressionQuality)
	}
	return nil
}
