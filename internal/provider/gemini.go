package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"speakeasy/internal/domain"
)

const (
	geminiAPIBase      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-2.5-flash"
	geminiHTTPTimeout  = 120 * time.Second
)

// Gemini is the direct AI upstream. It serves two capabilities: stateful
// chat sessions (NewSession) and stateless one-shot generation (Generate).
type Gemini struct {
	apiKey  string
	model   string
	apiBase string
	client  *http.Client
	logger  *slog.Logger
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	APIBase string // overridable for tests
	Logger  *slog.Logger
}

// NewGemini creates a Gemini client. The caller gates construction on a
// configured API key; a client without one fails Healthy and every call.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = geminiDefaultModel
	}
	if cfg.APIBase == "" {
		cfg.APIBase = geminiAPIBase
	}
	return &Gemini{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		apiBase: cfg.APIBase,
		client:  &http.Client{Timeout: geminiHTTPTimeout},
		logger:  cfg.Logger,
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Healthy(ctx context.Context) error {
	if g.apiKey == "" {
		return fmt.Errorf("gemini: no API key configured")
	}
	return nil
}

// --- wire types ---

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" | "model"
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inline_data,omitempty"`
}

type geminiBlob struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate performs a stateless one-shot generation. Implements
// domain.Generator for the translation layer.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	return g.generate(ctx, contents)
}

func (g *Gemini) generate(ctx context.Context, contents []geminiContent) (string, error) {
	body, err := json.Marshal(geminiRequest{Contents: contents})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.apiBase, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini %d: %s", resp.StatusCode, string(respBody))
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if gr.Error != nil {
		return "", fmt.Errorf("gemini: %s", gr.Error.Message)
	}
	if len(gr.Candidates) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}

	var textParts []string
	for _, p := range gr.Candidates[0].Content.Parts {
		if p.Text != "" {
			textParts = append(textParts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(textParts, "")), nil
}

// Session is a stateful chat session. One session object is reused across
// calls so the model keeps conversational context across turns.
type Session struct {
	g       *Gemini
	mu      sync.Mutex
	history []geminiContent
}

// NewSession starts a fresh conversation against this client.
func (g *Gemini) NewSession() *Session {
	return &Session{g: g}
}

// Send submits a prompt, with optional inline binary parts, through the
// session. The turn is recorded in history only when the call succeeds, so
// a failed call does not poison later ones. Implements domain.Session.
func (s *Session) Send(ctx context.Context, prompt string, parts ...domain.InlinePart) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userParts := []geminiPart{{Text: prompt}}
	for _, p := range parts {
		userParts = append(userParts, geminiPart{InlineData: &geminiBlob{
			MIMEType: p.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(p.Data),
		}})
	}

	turn := geminiContent{Role: "user", Parts: userParts}
	contents := append(append([]geminiContent{}, s.history...), turn)

	text, err := s.g.generate(ctx, contents)
	if err != nil {
		return "", err
	}

	s.history = append(s.history, turn, geminiContent{
		Role:  "model",
		Parts: []geminiPart{{Text: text}},
	})
	return text, nil
}

// Reset clears the conversational history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Len returns the number of stored turns, user and model combined.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
