// Package form drives the document form-filling flow: extract fillable
// fields, localize their labels, and request a populated output document.
package form

import (
	"context"
	"log/slog"
	"sync"

	"speakeasy/internal/domain"
	"speakeasy/internal/provider"
)

// Backend is the subset of the backend client the pipeline calls.
type Backend interface {
	ExtractFormFields(ctx context.Context, filename string, data []byte) (*provider.FormSchema, error)
	PopulateForm(ctx context.Context, filename string, data []byte, values domain.FieldValues) ([]byte, error)
}

// LabelTranslator translates a single field label.
type LabelTranslator interface {
	TranslateLabel(ctx context.Context, languageName, label string) (string, error)
}

type Pipeline struct {
	backend    Backend
	translator LabelTranslator
	logger     *slog.Logger
}

type Config struct {
	Backend    Backend
	Translator LabelTranslator
	Logger     *slog.Logger
}

func New(cfg Config) *Pipeline {
	return &Pipeline{
		backend:    cfg.Backend,
		translator: cfg.Translator,
		logger:     cfg.Logger,
	}
}

// Extract returns the document's fillable fields. hasFields=false means
// the document has nothing to fill, which is a valid outcome, not an
// error; upstream failures come back as FormExtractionError.
func (p *Pipeline) Extract(ctx context.Context, filename string, data []byte) (fields []domain.FormField, hasFields bool, err error) {
	schema, err := p.backend.ExtractFormFields(ctx, filename, data)
	if err != nil {
		return nil, false, &domain.FormExtractionError{Err: err}
	}
	if !schema.HasFormFields {
		return nil, false, nil
	}
	return schema.Fields, true, nil
}

// Populate sends the original document plus user-entered values, keyed by
// original field name, and returns the populated document bytes.
func (p *Pipeline) Populate(ctx context.Context, filename string, data []byte, values domain.FieldValues) ([]byte, error) {
	out, err := p.backend.PopulateForm(ctx, filename, data, values)
	if err != nil {
		return nil, &domain.FormPopulationError{Err: err}
	}
	return out, nil
}

// LocalizeFieldNames fills each field's DisplayName with a translated
// label. Translations run concurrently, one call per field, and are
// awaited collectively; results land by field identity so completion
// order does not matter. A failed translation falls back to the original
// name and is logged, never surfaced.
func (p *Pipeline) LocalizeFieldNames(ctx context.Context, languageName string, fields []domain.FormField) []domain.FormField {
	out := make([]domain.FormField, len(fields))
	copy(out, fields)

	if p.translator == nil {
		for i := range out {
			out[i].DisplayName = out[i].Name
		}
		return out
	}

	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			label, err := p.translator.TranslateLabel(ctx, languageName, out[i].Name)
			if err != nil || label == "" {
				if err != nil {
					p.logger.Warn("field label translation failed, keeping original",
						"field", out[i].Name, "error", err)
				}
				out[i].DisplayName = out[i].Name
				return
			}
			out[i].DisplayName = label
		}(i)
	}
	wg.Wait()
	return out
}
