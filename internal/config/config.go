package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds console configuration loaded from YAML and env.
type Config struct {
	PredictionAPIURL     string
	PredictPath          string
	ManualPredictPath    string
	HealthPath           string
	PredictionAPITimeout time.Duration

	MapResizeDelay time.Duration
	MapCenterLat   float64
	MapCenterLon   float64
	MapZoom        int

	TimestampLayout string

	SubmitRateLimitRPS   float64 // 0 disables the submit limiter
	SubmitRateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	DiagnosticsPort  string // empty disables the diagnostics server
	DegradedWindow   time.Duration
	DegradedErrorPct int

	ShutdownTimeout time.Duration
	LogLevel        string
}

type fileConfig struct {
	PredictionAPI struct {
		URL         string `yaml:"url"`
		PredictPath string `yaml:"predict_path"`
		ManualPath  string `yaml:"manual_path"`
		HealthPath  string `yaml:"health_path"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"prediction_api"`

	Map struct {
		ResizeDelay string   `yaml:"resize_delay"`
		CenterLat   *float64 `yaml:"center_lat"`
		CenterLon   *float64 `yaml:"center_lon"`
		Zoom        int      `yaml:"zoom"`
	} `yaml:"map"`

	Display struct {
		TimestampLayout string `yaml:"timestamp_layout"`
	} `yaml:"display"`

	Reliability struct {
		SubmitRateLimitRPS   float64 `yaml:"submit_rate_limit_rps"`
		SubmitRateLimitBurst int     `yaml:"submit_rate_limit_burst"`
		CircuitBreaker       struct {
			Enabled          bool   `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Diagnostics struct {
		Port             string `yaml:"port"`
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"diagnostics"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev). PREDICTION_API_URL,
// LOG_LEVEL and DIAGNOSTICS_PORT override the file. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.PredictionAPIURL = strings.TrimSpace(os.Getenv("PREDICTION_API_URL"))
	if cfg.PredictionAPIURL == "" {
		cfg.PredictionAPIURL = strings.TrimSpace(fc.PredictionAPI.URL)
	}
	if cfg.PredictionAPIURL == "" {
		cfg.PredictionAPIURL = "http://localhost:5000"
	}
	cfg.PredictPath = stringOr(fc.PredictionAPI.PredictPath, "/api/wildfire/predict")
	cfg.ManualPredictPath = stringOr(fc.PredictionAPI.ManualPath, "/api/wildfire/predict-manual")
	cfg.HealthPath = stringOr(fc.PredictionAPI.HealthPath, "/api/wildfire/health")
	cfg.PredictionAPITimeout = parseDurationOrZero(fc.PredictionAPI.Timeout, 30*time.Second)

	cfg.MapResizeDelay = parseDuration(fc.Map.ResizeDelay, 100*time.Millisecond)
	cfg.MapCenterLat = 39.8283
	if fc.Map.CenterLat != nil {
		cfg.MapCenterLat = *fc.Map.CenterLat
	}
	cfg.MapCenterLon = -98.5795
	if fc.Map.CenterLon != nil {
		cfg.MapCenterLon = *fc.Map.CenterLon
	}
	cfg.MapZoom = fc.Map.Zoom
	if cfg.MapZoom <= 0 {
		cfg.MapZoom = 4
	}

	cfg.TimestampLayout = stringOr(fc.Display.TimestampLayout, "1/2/2006, 3:04:05 PM")

	cfg.SubmitRateLimitRPS = fc.Reliability.SubmitRateLimitRPS
	if cfg.SubmitRateLimitRPS < 0 {
		cfg.SubmitRateLimitRPS = 0
	}
	cfg.SubmitRateLimitBurst = fc.Reliability.SubmitRateLimitBurst
	if cfg.SubmitRateLimitBurst <= 0 {
		cfg.SubmitRateLimitBurst = 1
	}

	cb := fc.Reliability.CircuitBreaker
	cfg.CircuitBreakerEnabled = cb.Enabled
	cfg.CircuitBreakerFailureThreshold = cb.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = cb.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 1
	}
	cfg.CircuitBreakerTimeout = parseDuration(cb.Timeout, 30*time.Second)

	cfg.DiagnosticsPort = strings.TrimSpace(os.Getenv("DIAGNOSTICS_PORT"))
	if cfg.DiagnosticsPort == "" {
		cfg.DiagnosticsPort = strings.TrimSpace(fc.Diagnostics.Port)
	}
	cfg.DegradedWindow = parseDuration(fc.Diagnostics.DegradedWindow, 5*time.Minute)
	cfg.DegradedErrorPct = fc.Diagnostics.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 10*time.Second)

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = strings.TrimSpace(fc.Logging.Level)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func stringOr(s, defaultVal string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return defaultVal
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.PredictionAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("prediction_api.url must be an http(s) URL, got %q", cfg.PredictionAPIURL)
	}
	if cfg.PredictionAPITimeout <= 0 {
		return fmt.Errorf("prediction_api.timeout must be positive")
	}
	if cfg.MapCenterLat < -90 || cfg.MapCenterLat > 90 || cfg.MapCenterLon < -180 || cfg.MapCenterLon > 180 {
		return fmt.Errorf("map centre %v,%v is not a valid coordinate", cfg.MapCenterLat, cfg.MapCenterLon)
	}
	if cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("diagnostics.degraded_error_pct must be at most 100, got %d", cfg.DegradedErrorPct)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return nil
}
