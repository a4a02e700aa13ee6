// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the service configuration from an optional YAML
// file, a .env file and MEDSCRUB_* environment variables, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"medscrub/internal/logger"
)

// Config is the full service configuration.
type Config struct {
	// Predictor is the external billing-code prediction service.
	Predictor struct {
		URL      string `yaml:"url"`
		APIKey   string `yaml:"api_key"`
		Category string `yaml:"category"`
	} `yaml:"predictor"`

	// NER configures the neural recognizer sidecar.
	NER struct {
		TaggerURL  string `yaml:"tagger_url"`
		WeightsURL string `yaml:"weights_url"`
		CachePath  string `yaml:"cache_path"`
	} `yaml:"ner"`

	// OCR configures local Tesseract recognition.
	OCR struct {
		Language    string  `yaml:"language"`
		PageWorkers int     `yaml:"page_workers"`
		FallbackDPI float64 `yaml:"fallback_dpi"`
	} `yaml:"ocr"`

	// Anonymizer tunes the de-identification engine.
	Anonymizer struct {
		Threshold float64 `yaml:"threshold"`
	} `yaml:"anonymizer"`

	// Processing controls the background pipeline.
	Processing struct {
		Workers int    `yaml:"workers"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"processing"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.Predictor.Category = "Hernien-OP"
	c.OCR.Language = "deu"
	c.OCR.PageWorkers = 4
	c.OCR.FallbackDPI = 300
	c.Anonymizer.Threshold = 0.7
	c.Processing.Workers = 4
	c.Processing.DataDir = "data"
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.Output = "stderr"
	return c
}

// Load builds the configuration. path may be empty; a missing .env
// file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	setString(&c.Predictor.URL, "MEDSCRUB_PREDICTOR_URL")
	setString(&c.Predictor.APIKey, "MEDSCRUB_PREDICTOR_API_KEY")
	setString(&c.Predictor.Category, "MEDSCRUB_CATEGORY")
	setString(&c.NER.TaggerURL, "MEDSCRUB_NER_TAGGER_URL")
	setString(&c.NER.WeightsURL, "MEDSCRUB_NER_WEIGHTS_URL")
	setString(&c.NER.CachePath, "MEDSCRUB_NER_CACHE_PATH")
	setString(&c.OCR.Language, "MEDSCRUB_OCR_LANGUAGE")
	setInt(&c.OCR.PageWorkers, "MEDSCRUB_OCR_PAGE_WORKERS")
	setFloat(&c.OCR.FallbackDPI, "MEDSCRUB_OCR_FALLBACK_DPI")
	setFloat(&c.Anonymizer.Threshold, "MEDSCRUB_ANONYMIZER_THRESHOLD")
	setInt(&c.Processing.Workers, "MEDSCRUB_WORKERS")
	setString(&c.Processing.DataDir, "MEDSCRUB_DATA_DIR")
	setString(&c.Log.Level, "MEDSCRUB_LOG_LEVEL")
	setString(&c.Log.Format, "MEDSCRUB_LOG_FORMAT")
	setString(&c.Log.Output, "MEDSCRUB_LOG_OUTPUT")
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Anonymizer.Threshold < 0 || c.Anonymizer.Threshold > 1 {
		return fmt.Errorf("config: anonymizer threshold %v outside [0,1]", c.Anonymizer.Threshold)
	}
	if c.Processing.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1")
	}
	if c.OCR.PageWorkers < 1 {
		return fmt.Errorf("config: ocr page workers must be at least 1")
	}
	if c.OCR.FallbackDPI <= 0 {
		return fmt.Errorf("config: fallback dpi must be positive")
	}
	return nil
}

// DatabasePath is the bbolt file location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Processing.DataDir, "medscrub.db")
}

// BlobDir is where uploaded documents are stored.
func (c *Config) BlobDir() string {
	return filepath.Join(c.Processing.DataDir, "blobs")
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Output: c.Log.Output,
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
