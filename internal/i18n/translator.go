// Package i18n translates interface string bundles, memoizing results per
// language for the process lifetime. Translation is best-effort: every
// failure falls back to the untranslated defaults and is never surfaced.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"speakeasy/internal/domain"
	"speakeasy/internal/metrics"
)

// BackendTranslator is the backend's translation endpoint as the
// translator consumes it.
type BackendTranslator interface {
	Translate(ctx context.Context, text, languageName string) (string, error)
}

// Translator resolves bundles through a fallback chain: cache, AI
// generation, backend endpoint, untranslated defaults.
type Translator struct {
	generator domain.Generator // nil when no AI credential is configured
	backend   BackendTranslator
	store     BundleStore
	logger    *slog.Logger
}

type Config struct {
	Generator domain.Generator
	Backend   BackendTranslator
	Store     BundleStore
	Logger    *slog.Logger
}

func New(cfg Config) *Translator {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	return &Translator{
		generator: cfg.Generator,
		backend:   cfg.Backend,
		store:     cfg.Store,
		logger:    cfg.Logger,
	}
}

// Localize returns the bundle translated into the named language. A cached
// bundle is returned as-is with no staleness check. On any failure the
// defaults come back unchanged; Localize never fails the caller.
func (t *Translator) Localize(ctx context.Context, languageName string, defaults domain.Bundle) domain.Bundle {
	if cached, ok := t.store.Get(ctx, languageName); ok {
		metrics.TranslationCacheHits.Inc()
		return cached
	}
	metrics.TranslationCacheMisses.Inc()

	if t.generator != nil {
		bundle, err := t.translateViaAI(ctx, languageName, defaults)
		if err == nil {
			t.store.Put(ctx, languageName, bundle)
			return bundle
		}
		t.logger.Warn("AI bundle translation failed, trying backend",
			"language", languageName, "error", err)
	}

	if t.backend != nil {
		bundle, err := t.translateViaBackend(ctx, languageName, defaults)
		if err == nil {
			t.store.Put(ctx, languageName, bundle)
			return bundle
		}
		t.logger.Warn("backend bundle translation failed, using defaults",
			"language", languageName, "error", err)
	}

	return defaults
}

func (t *Translator) translateViaAI(ctx context.Context, languageName string, defaults domain.Bundle) (domain.Bundle, error) {
	src, err := json.Marshal(defaults)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}

	reply, err := t.generator.Generate(ctx, bundlePrompt(languageName, string(src)))
	if err != nil {
		return nil, err
	}
	return parseBundle(reply, defaults)
}

func (t *Translator) translateViaBackend(ctx context.Context, languageName string, defaults domain.Bundle) (domain.Bundle, error) {
	src, err := json.Marshal(defaults)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}

	translated, err := t.backend.Translate(ctx, string(src), languageName)
	if err != nil {
		return nil, err
	}
	return parseBundle(translated, defaults)
}

// TranslateLabel translates a single short label, for per-field display
// names. Unlike Localize it returns its error; the form pipeline decides
// how to tolerate individual failures.
func (t *Translator) TranslateLabel(ctx context.Context, languageName, label string) (string, error) {
	if t.generator != nil {
		reply, err := t.generator.Generate(ctx, labelPrompt(languageName, label))
		if err == nil && strings.TrimSpace(reply) != "" {
			return strings.TrimSpace(reply), nil
		}
		if err != nil {
			t.logger.Warn("AI label translation failed, trying backend",
				"label", label, "error", err)
		}
	}
	if t.backend != nil {
		return t.backend.Translate(ctx, label, languageName)
	}
	return "", fmt.Errorf("no translation upstream available")
}

func bundlePrompt(languageName, bundleJSON string) string {
	return "Translate the string values of the following JSON object into " + languageName + ".\n" +
		"Keep every key exactly as it is. Any substring wrapped in curly braces, " +
		"like {name}, is a placeholder and must be preserved verbatim.\n" +
		"Reply with only the translated JSON object, no commentary.\n\n" +
		bundleJSON
}

func labelPrompt(languageName, label string) string {
	return "Translate the following form field label into " + languageName + ". " +
		"Reply with only the translation, nothing else.\n\n" + label
}

// parseBundle extracts a JSON object from a model reply and validates that
// it still carries every key of the source bundle.
func parseBundle(reply string, defaults domain.Bundle) (domain.Bundle, error) {
	raw := extractJSON(reply)
	var bundle domain.Bundle
	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		return nil, fmt.Errorf("parse translated bundle: %w", err)
	}
	if !bundle.HasKeys(defaults) {
		return nil, fmt.Errorf("translated bundle is missing keys")
	}
	return bundle, nil
}

// extractJSON trims code fences and surrounding prose from a model reply,
// keeping the outermost JSON object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
