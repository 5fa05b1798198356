// Package config reads the server settings from the environment.
//
// A .env file in the working directory is loaded first; variables already
// set in the environment win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port          int
	UploadDir     string
	OutputDir     string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	MaxUploadMB   int64
	// RenderScale is the preview scale: render pixels per document point.
	RenderScale    float64
	SofficeBin     string
	PdftoppmBin    string
	ConvertTimeout time.Duration
	LogLevel       string
	LogFormat      string
}

func Default() *Config {
	return &Config{
		Port:           8080,
		UploadDir:      "uploads",
		OutputDir:      "output",
		SessionTTL:     30 * time.Minute,
		SweepInterval:  5 * time.Minute,
		MaxUploadMB:    25,
		RenderScale:    1.5,
		SofficeBin:     "soffice",
		PdftoppmBin:    "pdftoppm",
		ConvertTimeout: 60 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load returns the defaults overridden by any variables that are set.
func Load() (*Config, error) {
	c := Default()
	var err error
	if c.Port, err = intVar("PORT", c.Port); err != nil {
		return nil, err
	}
	c.UploadDir = stringVar("UPLOAD_DIR", c.UploadDir)
	c.OutputDir = stringVar("OUTPUT_DIR", c.OutputDir)
	if c.SessionTTL, err = durationVar("SESSION_TTL", c.SessionTTL); err != nil {
		return nil, err
	}
	if c.SweepInterval, err = durationVar("SWEEP_INTERVAL", c.SweepInterval); err != nil {
		return nil, err
	}
	mb, err := intVar("MAX_UPLOAD_MB", int(c.MaxUploadMB))
	if err != nil {
		return nil, err
	}
	c.MaxUploadMB = int64(mb)
	if c.RenderScale, err = floatVar("RENDER_SCALE", c.RenderScale); err != nil {
		return nil, err
	}
	c.SofficeBin = stringVar("SOFFICE_BIN", c.SofficeBin)
	c.PdftoppmBin = stringVar("PDFTOPPM_BIN", c.PdftoppmBin)
	if c.ConvertTimeout, err = durationVar("CONVERT_TIMEOUT", c.ConvertTimeout); err != nil {
		return nil, err
	}
	c.LogLevel = stringVar("LOG_LEVEL", c.LogLevel)
	c.LogFormat = stringVar("LOG_FORMAT", c.LogFormat)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("PORT: %d out of range", c.Port)
	case c.SessionTTL <= 0:
		return fmt.Errorf("SESSION_TTL: must be positive")
	case c.SweepInterval <= 0:
		return fmt.Errorf("SWEEP_INTERVAL: must be positive")
	case c.MaxUploadMB <= 0:
		return fmt.Errorf("MAX_UPLOAD_MB: must be positive")
	case !(c.RenderScale > 0):
		return fmt.Errorf("RENDER_SCALE: must be positive")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("LOG_FORMAT: %q is not text or json", c.LogFormat)
	}
	return nil
}

// MaxUploadBytes is the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func stringVar(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

func intVar(name string, def int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func floatVar(name string, def float64) (float64, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

func durationVar(name string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
