package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `{
		"backend": {"baseUrl": "https://tunnel.example.com", "timeoutSeconds": 30},
		"gemini": {"enabled": true, "apiKey": "test-key"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://tunnel.example.com" {
		t.Fatalf("baseUrl not loaded, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSeconds != 30 {
		t.Fatalf("timeoutSeconds not loaded, got %d", cfg.Backend.TimeoutSeconds)
	}
	// Defaults fill unspecified sections.
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Fatalf("default model not applied, got %q", cfg.Gemini.Model)
	}
	if !cfg.Channels.CLI.Enabled {
		t.Fatal("default CLI channel should be enabled")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SPEAKEASY_TEST_KEY", "secret-from-env")
	path := writeConfig(t, `{
		"backend": {"baseUrl": "${SPEAKEASY_TEST_URL:-http://localhost:8000}", "timeoutSeconds": 60},
		"gemini": {"enabled": true, "apiKey": "${SPEAKEASY_TEST_KEY}"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "secret-from-env" {
		t.Fatalf("env var not expanded, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Fatalf("default value not applied, got %q", cfg.Backend.BaseURL)
	}
}

func TestExpandEnvVars_KeepsUnknownWithoutDefault(t *testing.T) {
	in := `"apiKey": "${DEFINITELY_NOT_SET_12345}"`
	if got := ExpandEnvVars(in); got != in {
		t.Fatalf("unset var without default should be kept verbatim, got %q", got)
	}
}

func TestValidate_RequiresBackendURL(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.BaseURL = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for empty backend.baseUrl")
	}
}

func TestValidate_GeminiKeyRequiredWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Gemini.Enabled = true
	cfg.Gemini.APIKey = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for enabled gemini without key")
	}
}

func TestValidate_RedisDriverNeedsAddr(t *testing.T) {
	cfg := Defaults()
	cfg.I18n.CacheDriver = "redis"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for redis driver without addr")
	}
	cfg.I18n.RedisAddr = "localhost:6379"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_BadCacheDriver(t *testing.T) {
	cfg := Defaults()
	cfg.I18n.CacheDriver = "memcached"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for unknown cache driver")
	}
}

func TestFlexStringList_MixedTypes(t *testing.T) {
	path := writeConfig(t, `{
		"backend": {"baseUrl": "http://localhost:8000", "timeoutSeconds": 60},
		"channels": {"telegram": {"enabled": true, "token": "t", "allowFrom": ["123", 456]}}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	allow := cfg.Channels.Telegram.AllowFrom
	if len(allow) != 2 || allow[0] != "123" || allow[1] != "456" {
		t.Fatalf("unexpected allowFrom: %v", allow)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := Defaults()
	cfg.Backend.BaseURL = "https://saved.example.com"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Backend.BaseURL != "https://saved.example.com" {
		t.Fatalf("round trip lost baseUrl, got %q", loaded.Backend.BaseURL)
	}
}
