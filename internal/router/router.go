// Package router decides which upstream serves a user submission: the
// file-processing backend, the direct AI session, or the generic text
// backend. Strategies are tried in a fixed priority order; the first one
// that applies produces the result or the failure.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"speakeasy/internal/domain"
	"speakeasy/internal/language"
	"speakeasy/internal/metrics"
	"speakeasy/internal/provider"
)

// PlaceholderAudioRef is returned by the session path, which produces no
// synthesized speech. The backend paths return real audio; this asymmetry
// is intentional until the session path grows its own synthesis.
const PlaceholderAudioRef = "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-1.mp3"

// SpeakBackend is the subset of the backend client the router calls.
type SpeakBackend interface {
	SpeakText(ctx context.Context, text, languageName string) (*domain.SimplifiedResult, error)
	SpeakFile(ctx context.Context, filename string, data []byte, contentType, languageName string) (*domain.SimplifiedResult, error)
}

// Strategy is one upstream path. Applies reports whether the strategy
// handles the message; Attempt produces a result or a typed failure.
// Exactly one strategy produces a given result; results are never merged.
type Strategy interface {
	Name() string
	Applies(msg domain.OutgoingMessage) bool
	Attempt(ctx context.Context, msg domain.OutgoingMessage, languageName string) (*domain.SimplifiedResult, error)
}

// Router holds the ordered strategy chain. It keeps no per-request state;
// every submission is consumed exactly once by exactly one strategy.
type Router struct {
	strategies []Strategy
	resolver   *language.Resolver
	logger     *slog.Logger
}

type Config struct {
	// Session is the direct AI session, nil when no credential was
	// configured at startup.
	Session  domain.Session
	Backend  SpeakBackend
	Resolver *language.Resolver
	Logger   *slog.Logger
}

// New builds the router with its fixed priority order: file processing,
// direct session, generic backend. The order is not configurable.
func New(cfg Config) *Router {
	return &Router{
		strategies: []Strategy{
			&fileStrategy{backend: cfg.Backend},
			&sessionStrategy{session: cfg.Session},
			&backendStrategy{backend: cfg.Backend, sessionConfigured: cfg.Session != nil},
		},
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
	}
}

// Simplify routes one submission. An empty message with only an attachment
// is valid; input validation belongs to the caller. Unknown language codes
// resolve to a fallback label and the request is still issued.
func (r *Router) Simplify(ctx context.Context, msg domain.OutgoingMessage) (*domain.SimplifiedResult, error) {
	languageName := r.resolver.Resolve(msg.LanguageCode)

	for _, s := range r.strategies {
		if !s.Applies(msg) {
			continue
		}
		r.logger.Info("routing request",
			"path", s.Name(),
			"language", languageName,
			"has_attachment", msg.Attachment != nil,
		)
		metrics.RouteRequests(s.Name()).Inc()

		start := time.Now()
		res, err := s.Attempt(ctx, msg, languageName)
		metrics.RouteLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.RouteFailures(s.Name()).Inc()
			r.logger.Warn("upstream failed", "path", s.Name(), "error", err)
			return nil, err
		}
		return res, nil
	}

	// The backend strategy applies unconditionally, so this is unreachable
	// unless the chain itself is misconfigured.
	return nil, fmt.Errorf("no routing strategy applied")
}

// --- file-processing path ---

// fileStrategy handles text and PDF attachments. It takes precedence over
// every other path, including an available session, so document semantics
// stay separate from conversational handling.
type fileStrategy struct {
	backend SpeakBackend
}

func (s *fileStrategy) Name() string { return "file" }

func (s *fileStrategy) Applies(msg domain.OutgoingMessage) bool {
	return msg.Attachment.IsDocument()
}

func (s *fileStrategy) Attempt(ctx context.Context, msg domain.OutgoingMessage, languageName string) (*domain.SimplifiedResult, error) {
	att := msg.Attachment
	data, contentType, err := att.Payload()
	if err != nil {
		return nil, &domain.FileProcessingError{Err: err}
	}
	if att.Kind == domain.AttachmentPDF {
		contentType = "application/pdf"
	}

	res, err := s.backend.SpeakFile(ctx, att.Name, data, contentType, languageName)
	if err != nil {
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) {
			return nil, &domain.FileProcessingError{Status: apiErr.Status, Err: err}
		}
		return nil, &domain.FileProcessingError{Err: err}
	}
	return res, nil
}

// --- direct-session path ---

type sessionStrategy struct {
	session domain.Session
}

func (s *sessionStrategy) Name() string { return "session" }

func (s *sessionStrategy) Applies(msg domain.OutgoingMessage) bool {
	return s.session != nil
}

func (s *sessionStrategy) Attempt(ctx context.Context, msg domain.OutgoingMessage, languageName string) (*domain.SimplifiedResult, error) {
	var parts []domain.InlinePart
	var filename string
	if att := msg.Attachment; att != nil {
		filename = att.Name
		if att.Kind == domain.AttachmentImage {
			data, mime, err := att.Payload()
			if err != nil {
				return nil, &domain.SessionError{Err: err}
			}
			parts = append(parts, domain.InlinePart{MIMEType: mime, Data: data})
		}
	}

	text, err := s.session.Send(ctx, sessionPrompt(msg.Text, filename, languageName), parts...)
	if err != nil {
		return nil, &domain.SessionError{Err: err}
	}
	return &domain.SimplifiedResult{
		Text:     text,
		AudioRef: PlaceholderAudioRef,
	}, nil
}

// sessionPrompt builds the combined instruction for a conversational turn:
// the raw message, an optional filename reference, and the resolved
// language name.
func sessionPrompt(message, filename, languageName string) string {
	prompt := "You are a helpful assistant that makes complex information easy to understand.\n" +
		"Rewrite or answer the following message in clear, plain language, " +
		"replacing jargon with simple explanations, and respond in " + languageName + ".\n"
	if filename != "" {
		prompt += "The user attached a file named \"" + filename + "\".\n"
	}
	prompt += "\nMessage:\n" + message
	return prompt
}

// --- generic backend path ---

type backendStrategy struct {
	backend           SpeakBackend
	sessionConfigured bool
}

func (s *backendStrategy) Name() string { return "backend" }

func (s *backendStrategy) Applies(domain.OutgoingMessage) bool { return true }

func (s *backendStrategy) Attempt(ctx context.Context, msg domain.OutgoingMessage, languageName string) (*domain.SimplifiedResult, error) {
	res, err := s.backend.SpeakText(ctx, msg.Text, languageName)
	if err != nil {
		return nil, &domain.BackendRequestError{
			SessionUnavailable: !s.sessionConfigured,
			Err:                err,
		}
	}
	return res, nil
}
