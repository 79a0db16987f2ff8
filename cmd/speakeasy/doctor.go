package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"speakeasy/internal/config"
	"speakeasy/internal/i18n"
	"speakeasy/internal/memory"
	"speakeasy/internal/provider"
)

// doctorCmd probes each configured dependency and reports what works.
// Checks are independent: one failing does not stop the rest.
func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check connectivity to configured services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			failures := 0
			report := func(name string, err error) {
				if err != nil {
					failures++
					fmt.Printf("  FAIL  %s: %v\n", name, err)
					return
				}
				fmt.Printf("  ok    %s\n", name)
			}

			fmt.Printf("speakeasy %s\n", version)

			backend := provider.NewBackend(provider.BackendConfig{
				BaseURL: cfg.Backend.BaseURL,
				Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
				Logger:  logger,
			})
			report("backend "+cfg.Backend.BaseURL, backend.Health(ctx))

			if cfg.Gemini.Enabled {
				gem := provider.NewGemini(provider.GeminiConfig{
					APIKey: cfg.Gemini.APIKey,
					Model:  cfg.Gemini.Model,
					Logger: logger,
				})
				report("gemini ("+cfg.Gemini.Model+")", gem.Healthy(ctx))
			} else {
				fmt.Println("  skip  gemini: disabled")
			}

			if cfg.I18n.CacheDriver == "redis" {
				rs := i18n.NewRedisStore(i18n.RedisConfig{
					Addr:   cfg.I18n.RedisAddr,
					DB:     cfg.I18n.RedisDB,
					Logger: logger,
				})
				report("redis "+cfg.I18n.RedisAddr, rs.Ping(ctx))
			} else {
				fmt.Println("  skip  redis: memory cache driver")
			}

			if cfg.Memory.Enabled {
				store, err := memory.NewSQLiteStore(config.ExpandPath(cfg.Memory.DBPath), logger)
				if err == nil {
					store.Close()
				}
				report("transcript store "+cfg.Memory.DBPath, err)
			} else {
				fmt.Println("  skip  transcript store: disabled")
			}

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			fmt.Println("all checks passed")
			return nil
		},
	}
}
