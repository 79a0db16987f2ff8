package form

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"speakeasy/internal/domain"
	"speakeasy/internal/provider"
)

type mockBackend struct {
	schema      *provider.FormSchema
	extractErr  error
	populated   []byte
	populateErr error
	lastValues  domain.FieldValues
}

func (m *mockBackend) ExtractFormFields(ctx context.Context, filename string, data []byte) (*provider.FormSchema, error) {
	if m.extractErr != nil {
		return nil, m.extractErr
	}
	return m.schema, nil
}

func (m *mockBackend) PopulateForm(ctx context.Context, filename string, data []byte, values domain.FieldValues) ([]byte, error) {
	m.lastValues = values
	if m.populateErr != nil {
		return nil, m.populateErr
	}
	return m.populated, nil
}

// mockLabelTranslator fails for names in failFor, prefixes the rest.
type mockLabelTranslator struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]bool
}

func (m *mockLabelTranslator) TranslateLabel(ctx context.Context, languageName, label string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.failFor[label] {
		return "", errors.New("translation unavailable")
	}
	return languageName + ":" + label, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestExtract_FieldsPresent(t *testing.T) {
	backend := &mockBackend{schema: &provider.FormSchema{
		HasFormFields: true,
		Fields: []domain.FormField{
			{Name: "Full Name", Kind: domain.FieldText},
			{Name: "Agree", Kind: domain.FieldCheckbox},
		},
	}}
	p := New(Config{Backend: backend, Logger: testLogger()})

	fields, has, err := p.Extract(context.Background(), "doc.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has || len(fields) != 2 {
		t.Fatalf("unexpected result: has=%v fields=%v", has, fields)
	}
}

func TestExtract_NoFieldsIsNotAnError(t *testing.T) {
	backend := &mockBackend{schema: &provider.FormSchema{HasFormFields: false}}
	p := New(Config{Backend: backend, Logger: testLogger()})

	fields, has, err := p.Extract(context.Background(), "doc.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("no-fields must be distinct from failure: %v", err)
	}
	if has || fields != nil {
		t.Fatalf("expected empty outcome, got has=%v fields=%v", has, fields)
	}
}

func TestExtract_UpstreamFailureWrapped(t *testing.T) {
	backend := &mockBackend{extractErr: errors.New("backend 500 Internal Server Error")}
	p := New(Config{Backend: backend, Logger: testLogger()})

	_, _, err := p.Extract(context.Background(), "doc.pdf", []byte("%PDF"))
	var exErr *domain.FormExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected *FormExtractionError, got %v", err)
	}
}

func TestPopulate_PassesValuesByOriginalName(t *testing.T) {
	backend := &mockBackend{populated: []byte("%PDF-filled")}
	p := New(Config{Backend: backend, Logger: testLogger()})

	out, err := p.Populate(context.Background(), "doc.pdf", []byte("%PDF"),
		domain.FieldValues{"Full Name": "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "%PDF-filled" {
		t.Fatalf("unexpected output %q", out)
	}
	if backend.lastValues["Full Name"] != "Ada" {
		t.Fatalf("values not forwarded: %v", backend.lastValues)
	}
}

func TestPopulate_FailureWrapped(t *testing.T) {
	backend := &mockBackend{populateErr: errors.New("boom")}
	p := New(Config{Backend: backend, Logger: testLogger()})

	_, err := p.Populate(context.Background(), "doc.pdf", []byte("%PDF"), nil)
	var popErr *domain.FormPopulationError
	if !errors.As(err, &popErr) {
		t.Fatalf("expected *FormPopulationError, got %v", err)
	}
}

func TestLocalizeFieldNames_TranslatesEachField(t *testing.T) {
	tr := &mockLabelTranslator{}
	p := New(Config{Backend: &mockBackend{}, Translator: tr, Logger: testLogger()})

	fields := []domain.FormField{
		{Name: "Full Name"},
		{Name: "Date of Birth"},
		{Name: "Signature"},
	}
	out := p.LocalizeFieldNames(context.Background(), "Spanish", fields)

	if tr.calls != 3 {
		t.Fatalf("expected one translation call per field, got %d", tr.calls)
	}
	for i, f := range out {
		if f.DisplayName != "Spanish:"+fields[i].Name {
			t.Fatalf("field %d display name = %q", i, f.DisplayName)
		}
		if f.Name != fields[i].Name {
			t.Fatalf("field identity must not change, got %q", f.Name)
		}
	}
}

func TestLocalizeFieldNames_PerFieldFailureFallsBack(t *testing.T) {
	tr := &mockLabelTranslator{failFor: map[string]bool{"Date of Birth": true}}
	p := New(Config{Backend: &mockBackend{}, Translator: tr, Logger: testLogger()})

	out := p.LocalizeFieldNames(context.Background(), "Spanish", []domain.FormField{
		{Name: "Full Name"},
		{Name: "Date of Birth"},
	})

	if out[0].DisplayName != "Spanish:Full Name" {
		t.Fatalf("healthy field not translated: %q", out[0].DisplayName)
	}
	if out[1].DisplayName != "Date of Birth" {
		t.Fatalf("failed field must keep its original name, got %q", out[1].DisplayName)
	}
}

func TestLocalizeFieldNames_NoTranslator(t *testing.T) {
	p := New(Config{Backend: &mockBackend{}, Logger: testLogger()})

	out := p.LocalizeFieldNames(context.Background(), "Spanish", []domain.FormField{{Name: "Full Name"}})
	if out[0].DisplayName != "Full Name" {
		t.Fatalf("expected original name, got %q", out[0].DisplayName)
	}
}

func TestLocalizeFieldNames_DoesNotMutateInput(t *testing.T) {
	tr := &mockLabelTranslator{}
	p := New(Config{Backend: &mockBackend{}, Translator: tr, Logger: testLogger()})

	fields := []domain.FormField{{Name: "Full Name"}}
	_ = p.LocalizeFieldNames(context.Background(), "Spanish", fields)
	if fields[0].DisplayName != "" {
		t.Fatalf("input slice mutated: %q", fields[0].DisplayName)
	}
}
