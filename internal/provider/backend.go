package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"speakeasy/internal/domain"
)

// APIError is a non-success HTTP response from the backend. Status carries
// the upstream status text; Message the backend's error payload when the
// body was parseable.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s", e.Status)
}

// Backend is the client for the remote simplification backend, reached
// through a tunnel URL. All endpoints are plain HTTP with JSON or
// multipart bodies.
type Backend struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewBackend(cfg BackendConfig) *Backend {
	return &Backend{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  SharedHTTPClient(cfg.Timeout),
		logger:  cfg.Logger,
	}
}

// FormSchema is the extraction response. HasFormFields=false means the
// document has nothing to fill, which is not a failure.
type FormSchema struct {
	HasFormFields bool               `json:"has_form_fields"`
	Fields        []domain.FormField `json:"fields"`
}

type speakResponse struct {
	Text  string `json:"text"`
	Audio string `json:"audio"` // base64 MP3
}

// Health probes the backend's health endpoint.
func (b *Backend) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

// SpeakText simplifies, translates, and narrates plain text. The returned
// audio reference is a data URL wrapping the backend's base64 MP3.
func (b *Backend) SpeakText(ctx context.Context, text, languageName string) (*domain.SimplifiedResult, error) {
	payload := map[string]string{"text": text, "target_language": languageName}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/speak_text_input", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return b.doSpeak(req)
}

// SpeakFile uploads a document for simplification and narration. The
// target language travels as a query parameter; the file's MIME type is
// set per part because the backend rejects unsupported content types.
func (b *Backend) SpeakFile(ctx context.Context, filename string, data []byte, contentType, languageName string) (*domain.SimplifiedResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := createFilePart(writer, "file", filename, contentType)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write file data: %w", err)
	}
	writer.Close()

	endpoint := b.baseURL + "/speak_file_input?target_language=" + url.QueryEscape(languageName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return b.doSpeak(req)
}

func (b *Backend) doSpeak(req *http.Request) (*domain.SimplifiedResult, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, b.apiError(resp)
	}

	var sr speakResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	return &domain.SimplifiedResult{
		Text:     sr.Text,
		AudioRef: domain.AudioDataURL(sr.Audio),
	}, nil
}

// Translate translates text through the backend's translation endpoint.
func (b *Backend) Translate(ctx context.Context, text, languageName string) (string, error) {
	payload := map[string]string{"text": text, "target_language": languageName}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", b.apiError(resp)
	}

	var tr struct {
		Translated string `json:"translated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode backend response: %w", err)
	}
	return tr.Translated, nil
}

// ExtractFormFields submits a PDF and returns its fillable fields.
func (b *Backend) ExtractFormFields(ctx context.Context, filename string, data []byte) (*FormSchema, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := createFilePart(writer, "file", filename, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write file data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/extract_form_fields", &buf)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, b.apiError(resp)
	}

	var schema FormSchema
	if err := json.NewDecoder(resp.Body).Decode(&schema); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	return &schema, nil
}

// PopulateForm submits the original PDF plus user-entered values and
// returns the populated document bytes.
func (b *Backend) PopulateForm(ctx context.Context, filename string, data []byte, values domain.FieldValues) ([]byte, error) {
	fieldData, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal field data: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := createFilePart(writer, "file", filename, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write file data: %w", err)
	}
	if err := writer.WriteField("field_data", string(fieldData)); err != nil {
		return nil, fmt.Errorf("write field data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/populate_form", &buf)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, b.apiError(resp)
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read populated document: %w", err)
	}
	return out, nil
}

// apiError builds an APIError from a non-success response, extracting the
// backend's {"error": ...} payload when present.
func (b *Backend) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status}

	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			apiErr.Message = payload.Error
		} else if payload.Detail != "" {
			apiErr.Message = payload.Detail
		}
	}
	if apiErr.Message == "" && len(body) > 0 {
		apiErr.Message = string(body)
	}
	return apiErr
}

// createFilePart is like CreateFormFile but with an explicit Content-Type
// on the part instead of application/octet-stream.
func createFilePart(w *multipart.Writer, fieldName, filename, contentType string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(fieldName), escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
