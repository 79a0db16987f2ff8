package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config is the root configuration for SpeakEasy.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Gemini   GeminiConfig   `json:"gemini"`
	Backend  BackendConfig  `json:"backend"`
	Channels ChannelsConfig `json:"channels"`
	Memory   MemoryConfig   `json:"memory"`
	I18n     I18nConfig     `json:"i18n"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	Workspace       string `json:"workspace"`
	LogLevel        string `json:"logLevel"`
	LogFile         string `json:"logFile,omitempty"`
	DefaultLanguage string `json:"defaultLanguage"` // short code, e.g. "en"
}

// GeminiConfig configures the direct AI session. The session path is only
// available when an API key is present at startup.
type GeminiConfig struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
}

// BackendConfig points at the remote simplification backend, usually a
// tunnel URL in front of the API.
type BackendConfig struct {
	BaseURL        string `json:"baseUrl"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type ChannelsConfig struct {
	CLI      CLIConfig      `json:"cli"`
	Telegram TelegramConfig `json:"telegram"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled"`
	Token     string         `json:"token"`
	AllowFrom FlexStringList `json:"allowFrom"`
	ParseMode string         `json:"parseMode"`
}

type MemoryConfig struct {
	Enabled                   bool   `json:"enabled"`
	DBPath                    string `json:"dbPath"`
	MaxHistoryPerConversation int    `json:"maxHistoryPerConversation"`
	RetentionDays             int    `json:"retentionDays"`
}

// I18nConfig configures the translation cache. The memory driver keeps
// bundles per process; the redis driver shares them across instances.
type I18nConfig struct {
	CacheDriver   string `json:"cacheDriver"` // "memory" | "redis"
	RedisAddr     string `json:"redisAddr,omitempty"`
	RedisDB       int    `json:"redisDb,omitempty"`
	LanguagesFile string `json:"languagesFile,omitempty"` // optional YAML overlay
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Endpoint string `json:"endpoint"`
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// DefaultConfigDir returns the default config directory (~/.speakeasy).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".speakeasy"
	}
	return filepath.Join(home, ".speakeasy")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.Workspace = ExpandPath(cfg.General.Workspace)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Memory.DBPath = ExpandPath(cfg.Memory.DBPath)
	cfg.I18n.LanguagesFile = ExpandPath(cfg.I18n.LanguagesFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Backend.BaseURL == "" {
		errs = append(errs, "backend.baseUrl is required")
	}
	if cfg.Backend.TimeoutSeconds < 1 {
		errs = append(errs, "backend.timeoutSeconds must be >= 1")
	}

	if cfg.Gemini.Enabled && cfg.Gemini.APIKey == "" {
		errs = append(errs, "gemini.apiKey is required when gemini is enabled")
	}

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		errs = append(errs, "channels.telegram.token is required when telegram is enabled")
	}

	if cfg.Memory.MaxHistoryPerConversation < 1 {
		errs = append(errs, "memory.maxHistoryPerConversation must be >= 1")
	}
	if cfg.Memory.RetentionDays < 1 {
		errs = append(errs, "memory.retentionDays must be >= 1")
	}

	switch cfg.I18n.CacheDriver {
	case "", "memory", "redis":
		// valid
	default:
		errs = append(errs, "i18n.cacheDriver must be one of: memory, redis")
	}
	if cfg.I18n.CacheDriver == "redis" && cfg.I18n.RedisAddr == "" {
		errs = append(errs, "i18n.redisAddr is required for the redis cache driver")
	}

	if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
		errs = append(errs, "metrics.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
