package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"speakeasy/internal/channel"
	"speakeasy/internal/chat"
	"speakeasy/internal/config"
	"speakeasy/internal/domain"
	"speakeasy/internal/form"
	"speakeasy/internal/i18n"
	"speakeasy/internal/language"
	"speakeasy/internal/memory"
	"speakeasy/internal/metrics"
	"speakeasy/internal/provider"
	"speakeasy/internal/router"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "speakeasy",
		Short: "SpeakEasy: plain-language document assistant",
		Long:  "SpeakEasy simplifies confusing documents and messages into plain language,\nin the user's own language, with spoken audio. Chat over CLI or Telegram.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.speakeasy/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(daemonCmd())
	root.AddCommand(simplifyCmd())
	root.AddCommand(formCmd())
	root.AddCommand(translateCmd())
	root.AddCommand(doctorCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			workspace := config.ExpandPath(cfg.General.Workspace)
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "workspace", workspace)
			return nil
		},
	}
}

func loadConfig() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	applyLogging(cfg.General)
	return cfg
}

// applyLogging rebuilds the process logger from config: level, and an
// optional log file instead of stderr.
func applyLogging(gen config.GeneralConfig) {
	var lvl slog.Level
	switch gen.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	out := io.Writer(os.Stderr)
	if gen.LogFile != "" {
		f, err := os.OpenFile(gen.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", gen.LogFile, "err", err)
		} else {
			out = f
		}
	}
	logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl}))
}

// app is the wired object graph shared by the chat, daemon, and one-shot
// commands.
type app struct {
	cfg        *config.Config
	resolver   *language.Resolver
	backend    *provider.Backend
	gemini     *provider.Gemini // nil when disabled
	router     *router.Router
	translator *i18n.Translator
	pipeline   *form.Pipeline
	store      domain.TranscriptStore
	redis      *i18n.RedisStore // nil with the memory driver
}

func buildApp(cfg *config.Config) (*app, error) {
	resolver := language.NewResolver()
	if cfg.I18n.LanguagesFile != "" {
		if err := resolver.LoadOverlay(cfg.I18n.LanguagesFile); err != nil {
			logger.Warn("language overlay not loaded", "err", err)
		}
	}

	backend := provider.NewBackend(provider.BackendConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		Logger:  logger,
	})

	a := &app{cfg: cfg, resolver: resolver, backend: backend}

	var session domain.Session
	var generator domain.Generator
	if cfg.Gemini.Enabled && cfg.Gemini.APIKey != "" {
		a.gemini = provider.NewGemini(provider.GeminiConfig{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
			Logger: logger,
		})
		session = a.gemini.NewSession()
		generator = a.gemini
		logger.Info("gemini session enabled", "model", cfg.Gemini.Model)
	} else {
		logger.Info("gemini session disabled; routing falls through to the backend")
	}

	a.router = router.New(router.Config{
		Session:  session,
		Backend:  backend,
		Resolver: resolver,
		Logger:   logger,
	})

	var store i18n.BundleStore
	if cfg.I18n.CacheDriver == "redis" {
		a.redis = i18n.NewRedisStore(i18n.RedisConfig{
			Addr:   cfg.I18n.RedisAddr,
			DB:     cfg.I18n.RedisDB,
			Logger: logger,
		})
		store = a.redis
	}
	a.translator = i18n.New(i18n.Config{
		Generator: generator,
		Backend:   backend,
		Store:     store,
		Logger:    logger,
	})

	a.pipeline = form.New(form.Config{
		Backend:    backend,
		Translator: a.translator,
		Logger:     logger,
	})

	if cfg.Memory.Enabled {
		ts, err := memory.NewSQLiteStore(config.ExpandPath(cfg.Memory.DBPath), logger)
		if err != nil {
			return nil, fmt.Errorf("transcript store: %w", err)
		}
		a.store = ts
	}

	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat (CLI)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			workspace := config.ExpandPath(cfg.General.Workspace)
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			svc := chat.New(chat.Config{Router: a.router, Store: a.store, Logger: logger})

			cli := channel.NewCLI(channel.CLIConfig{
				Chat:     svc,
				Resolver: a.resolver,
				Language: cfg.General.DefaultLanguage,
				AudioDir: workspace,
				Logger:   logger,
			})
			metrics.ActiveChannels.Inc()
			defer metrics.ActiveChannels.Dec()
			return cli.Start(ctx)
		},
	}
}

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run enabled channels until interrupted",
		Long:  "Starts the Telegram channel (when enabled), the metrics endpoint, and the\ntranscript retention sweep. Press Ctrl+C to stop.",
		RunE:  runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogging(cfg.General)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	svc := chat.New(chat.Config{Router: a.router, Store: a.store, Logger: logger})

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		tg := channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Channels.Telegram.Token,
			AllowFrom: cfg.Channels.Telegram.AllowFrom,
			Language:  cfg.General.DefaultLanguage,
			ParseMode: cfg.Channels.Telegram.ParseMode,
			Chat:      svc,
			Resolver:  a.resolver,
			Logger:    logger,
		})
		metrics.ActiveChannels.Inc()
		go func() {
			defer metrics.ActiveChannels.Dec()
			if err := tg.Start(ctx); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		logger.Info("telegram channel enabled")
	} else {
		logger.Info("telegram channel disabled")
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc(cfg.Metrics.Endpoint, metrics.Collector.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info("metrics endpoint listening", "addr", metricsSrv.Addr, "path", cfg.Metrics.Endpoint)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	if a.store != nil && cfg.Memory.RetentionDays > 0 {
		go retentionSweep(ctx, a.store, time.Duration(cfg.Memory.RetentionDays)*24*time.Hour)
	}

	logger.Info("daemon started", "version", version)
	<-ctx.Done()
	logger.Info("shutting down...")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// retentionSweep prunes idle conversations once a day.
func retentionSweep(ctx context.Context, store domain.TranscriptStore, retention time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		removed, err := store.Prune(ctx, retention)
		if err != nil {
			logger.Warn("transcript prune failed", "err", err)
		} else if removed > 0 {
			logger.Info("pruned idle conversations", "count", removed)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
