package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Workspace:       "~/.speakeasy/workspace",
			LogLevel:        "info",
			DefaultLanguage: "en",
		},
		Gemini: GeminiConfig{
			Enabled: false,
			Model:   "gemini-2.5-flash",
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 120,
		},
		Channels: ChannelsConfig{
			CLI: CLIConfig{
				Enabled: true,
			},
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "Markdown",
			},
		},
		Memory: MemoryConfig{
			Enabled:                   true,
			DBPath:                    "~/.speakeasy/transcripts.db",
			MaxHistoryPerConversation: 100,
			RetentionDays:             365,
		},
		I18n: I18nConfig{
			CacheDriver: "memory",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Host:     "127.0.0.1",
			Port:     9090,
			Endpoint: "/metrics",
		},
	}
}
