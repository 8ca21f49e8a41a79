package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	OCREngineTesseract = "tesseract"
	OCREngineNone      = "none"
)

// Config is built once at startup and passed around by value.
// The pipeline only ever sees Scoring and Pipeline.
type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	CORSAllowedOrigins []string
	SessionTTL         time.Duration
	LogLevel           string

	Scoring  ScoringConfig
	Pipeline PipelineConfig
	OCR      OCRConfig
	Images   ImageConfig
}

// ScoringConfig describes the remote scoring webhook. An empty URL disables it.
type ScoringConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type PipelineConfig struct {
	RevealDelay time.Duration `yaml:"reveal_delay"`
}

type OCRConfig struct {
	Engine   string `yaml:"engine"`
	Language string `yaml:"language"`
}

type ImageConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	AzureAccount string        `yaml:"azure_account"`
	AzureKey     string        `yaml:"azure_key"`
}

// fileConfig mirrors the optional YAML file; zero values leave defaults alone
type fileConfig struct {
	Server struct {
		Host               string        `yaml:"host"`
		Port               string        `yaml:"port"`
		RequestTimeout     time.Duration `yaml:"request_timeout"`
		MaxRequestBodySize int64         `yaml:"max_request_body_size"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
		SessionTTL         time.Duration `yaml:"session_ttl"`
	} `yaml:"server"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	OCR      OCRConfig      `yaml:"ocr"`
	Images   ImageConfig    `yaml:"images"`
}

func (c Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob-hosted screenshots can be fetched
func (c Config) AzureEnabled() bool {
	return c.Images.AzureAccount != "" && c.Images.AzureKey != ""
}

// Defaults returns the configuration used when nothing is overridden
func Defaults() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               "8080",
		RequestTimeout:     30 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		SessionTTL:         30 * time.Minute,
		LogLevel:           "info",
		Scoring: ScoringConfig{
			Timeout: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			RevealDelay: 1200 * time.Millisecond,
		},
		OCR: OCRConfig{
			Engine:   OCREngineTesseract,
			Language: "eng",
		},
		Images: ImageConfig{
			FetchTimeout: 15 * time.Second,
		},
	}
}

// LoadFromEnv layers defaults, the YAML file named by CONFIG_FILE, a local
// .env file and the process environment, in that order.
func LoadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and formats
func (c Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.Scoring.Timeout <= 0 || c.Images.FetchTimeout <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, scoring=%s, fetch=%s, session=%s)",
			c.RequestTimeout, c.Scoring.Timeout, c.Images.FetchTimeout, c.SessionTTL)
	}
	if c.Pipeline.RevealDelay < 0 {
		return fmt.Errorf("REVEAL_DELAY must be >= 0 (got %s)", c.Pipeline.RevealDelay)
	}
	switch c.OCR.Engine {
	case OCREngineTesseract, OCREngineNone:
	default:
		return fmt.Errorf("unsupported OCR_ENGINE: %q", c.OCR.Engine)
	}
	if c.Scoring.WebhookURL != "" {
		u, err := url.Parse(c.Scoring.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid SCORING_WEBHOOK_URL: %q", c.Scoring.WebhookURL)
		}
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.Host, fc.Server.Host)
	setString(&cfg.Port, fc.Server.Port)
	setDuration(&cfg.RequestTimeout, fc.Server.RequestTimeout)
	setDuration(&cfg.SessionTTL, fc.Server.SessionTTL)
	if fc.Server.MaxRequestBodySize != 0 {
		cfg.MaxRequestBodySize = fc.Server.MaxRequestBodySize
	}
	if len(fc.Server.CORSAllowedOrigins) > 0 {
		cfg.CORSAllowedOrigins = fc.Server.CORSAllowedOrigins
	}
	setString(&cfg.LogLevel, fc.Logging.Level)
	setString(&cfg.Scoring.WebhookURL, fc.Scoring.WebhookURL)
	setDuration(&cfg.Scoring.Timeout, fc.Scoring.Timeout)
	setDuration(&cfg.Pipeline.RevealDelay, fc.Pipeline.RevealDelay)
	setString(&cfg.OCR.Engine, fc.OCR.Engine)
	setString(&cfg.OCR.Language, fc.OCR.Language)
	setDuration(&cfg.Images.FetchTimeout, fc.Images.FetchTimeout)
	setString(&cfg.Images.AzureAccount, fc.Images.AzureAccount)
	setString(&cfg.Images.AzureKey, fc.Images.AzureKey)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.SessionTTL = parseDurationOrDefault("SESSION_TTL", cfg.SessionTTL)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = splitList(origins)
	}

	cfg.Scoring.WebhookURL = strings.TrimSpace(getEnvOrDefault("SCORING_WEBHOOK_URL", cfg.Scoring.WebhookURL))
	cfg.Scoring.Timeout = parseDurationOrDefault("SCORING_TIMEOUT", cfg.Scoring.Timeout)
	cfg.Pipeline.RevealDelay = parseDurationOrDefault("REVEAL_DELAY", cfg.Pipeline.RevealDelay)
	cfg.OCR.Engine = strings.ToLower(getEnvOrDefault("OCR_ENGINE", cfg.OCR.Engine))
	cfg.OCR.Language = getEnvOrDefault("OCR_LANGUAGE", cfg.OCR.Language)
	cfg.Images.FetchTimeout = parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", cfg.Images.FetchTimeout)
	cfg.Images.AzureAccount = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", cfg.Images.AzureAccount)
	cfg.Images.AzureKey = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.Images.AzureKey)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
