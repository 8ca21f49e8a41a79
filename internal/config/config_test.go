package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected defaults to load, got %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Expected 0.0.0.0:8080, got %s", cfg.ServerAddress())
	}
	if cfg.Pipeline.RevealDelay != 1200*time.Millisecond {
		t.Errorf("Expected 1.2s reveal delay, got %s", cfg.Pipeline.RevealDelay)
	}
	if cfg.Scoring.WebhookURL != "" {
		t.Errorf("Expected scoring webhook to be disabled by default, got %q", cfg.Scoring.WebhookURL)
	}
	if cfg.OCR.Engine != OCREngineTesseract || cfg.OCR.Language != "eng" {
		t.Errorf("Unexpected OCR defaults: %+v", cfg.OCR)
	}
	if cfg.AzureEnabled() {
		t.Error("Azure should be disabled without credentials")
	}
}

func TestLoadFromEnv_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", " 9090 ")
	t.Setenv("SCORING_WEBHOOK_URL", "https://hooks.example.com/score")
	t.Setenv("SCORING_TIMEOUT", "3s")
	t.Setenv("REVEAL_DELAY", "0s")
	t.Setenv("OCR_ENGINE", "NONE")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "a2V5")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:9090" {
		t.Errorf("Expected trimmed port, got %s", cfg.ServerAddress())
	}
	if cfg.Scoring.WebhookURL != "https://hooks.example.com/score" || cfg.Scoring.Timeout != 3*time.Second {
		t.Errorf("Unexpected scoring config: %+v", cfg.Scoring)
	}
	if cfg.Pipeline.RevealDelay != 0 {
		t.Errorf("Expected zero reveal delay, got %s", cfg.Pipeline.RevealDelay)
	}
	if cfg.OCR.Engine != OCREngineNone {
		t.Errorf("Expected OCR engine none, got %s", cfg.OCR.Engine)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.AzureEnabled() {
		t.Error("Expected Azure to be enabled")
	}
}

func TestLoadFromEnv_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redflag.yaml")
	content := `
server:
  port: "7070"
  session_ttl: 5m
scoring:
  webhook_url: https://file.example.com/hook
  timeout: 4s
pipeline:
  reveal_delay: 800ms
ocr:
  language: deu
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SCORING_TIMEOUT", "2s")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Port != "7070" || cfg.SessionTTL != 5*time.Minute {
		t.Errorf("File values not applied: port=%s ttl=%s", cfg.Port, cfg.SessionTTL)
	}
	if cfg.Scoring.WebhookURL != "https://file.example.com/hook" {
		t.Errorf("Expected webhook from file, got %q", cfg.Scoring.WebhookURL)
	}
	if cfg.Scoring.Timeout != 2*time.Second {
		t.Errorf("Expected env to win over file, got %s", cfg.Scoring.Timeout)
	}
	if cfg.Pipeline.RevealDelay != 800*time.Millisecond || cfg.OCR.Language != "deu" || cfg.LogLevel != "debug" {
		t.Errorf("Unexpected file overlay: %+v", cfg)
	}
}

func TestLoadFromEnv_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"port not numeric", func(c *Config) { c.Port = "http" }, true},
		{"port out of range", func(c *Config) { c.Port = "70000" }, true},
		{"zero body size", func(c *Config) { c.MaxRequestBodySize = 0 }, true},
		{"zero scoring timeout", func(c *Config) { c.Scoring.Timeout = 0 }, true},
		{"negative reveal delay", func(c *Config) { c.Pipeline.RevealDelay = -time.Second }, true},
		{"unknown OCR engine", func(c *Config) { c.OCR.Engine = "easyocr" }, true},
		{"webhook without scheme", func(c *Config) { c.Scoring.WebhookURL = "hooks.example.com" }, true},
		{"webhook ftp", func(c *Config) { c.Scoring.WebhookURL = "ftp://hooks.example.com" }, true},
		{"webhook https", func(c *Config) { c.Scoring.WebhookURL = "https://hooks.example.com/x" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
