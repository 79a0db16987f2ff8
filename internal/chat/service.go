// Package chat ties a channel turn together: it persists the user's
// submission, routes it to an upstream, and persists the outcome so the
// transcript can be re-rendered later. Failed turns are recorded too,
// marked with an error role.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"speakeasy/internal/domain"
)

// Simplifier routes one submission to whichever upstream serves it.
type Simplifier interface {
	Simplify(ctx context.Context, msg domain.OutgoingMessage) (*domain.SimplifiedResult, error)
}

// Service handles chat turns for all channels. A session key identifies
// the conversation (e.g. "cli:default" or "telegram:12345") and doubles
// as its ID, so the same chat always resumes the same transcript.
type Service struct {
	router Simplifier
	store  domain.TranscriptStore
	logger *slog.Logger

	mu sync.Mutex // guards conversation creation
}

type Config struct {
	Router Simplifier
	Store  domain.TranscriptStore
	Logger *slog.Logger
}

func New(cfg Config) *Service {
	if cfg.Store == nil {
		cfg.Store = discardStore{}
	}
	return &Service{
		router: cfg.Router,
		store:  cfg.Store,
		logger: cfg.Logger,
	}
}

// Handle processes one turn. The user's submission is persisted before
// routing; the assistant reply, or the failure, is persisted after. Store
// errors are logged and do not block the reply, and routing errors come
// back to the caller unchanged so the channel can render them.
func (s *Service) Handle(ctx context.Context, sessionKey, channel string, msg domain.OutgoingMessage) (*domain.SimplifiedResult, error) {
	if err := s.ensureConversation(ctx, sessionKey, channel, msg); err != nil {
		s.logger.Warn("cannot open conversation", "session", sessionKey, "error", err)
	}

	userTurn := domain.TranscriptMessage{Role: domain.RoleUser, Content: msg.Text}
	if att := msg.Attachment; att != nil && userTurn.Content == "" {
		userTurn.Content = "[attachment: " + att.Name + "]"
	}
	if err := s.store.AddMessage(ctx, sessionKey, userTurn); err != nil {
		s.logger.Warn("cannot persist user turn", "session", sessionKey, "error", err)
	}

	res, err := s.router.Simplify(ctx, msg)
	if err != nil {
		errTurn := domain.TranscriptMessage{Role: domain.RoleError, Content: err.Error()}
		if storeErr := s.store.AddMessage(ctx, sessionKey, errTurn); storeErr != nil {
			s.logger.Warn("cannot persist error turn", "session", sessionKey, "error", storeErr)
		}
		return nil, err
	}

	reply := domain.TranscriptMessage{
		Role:     domain.RoleAssistant,
		Content:  res.Text,
		AudioRef: res.AudioRef,
	}
	if storeErr := s.store.AddMessage(ctx, sessionKey, reply); storeErr != nil {
		s.logger.Warn("cannot persist assistant turn", "session", sessionKey, "error", storeErr)
	}
	return res, nil
}

// History returns the conversation's persisted turns, oldest first.
func (s *Service) History(ctx context.Context, sessionKey string, limit int) ([]domain.TranscriptMessage, error) {
	return s.store.GetMessages(ctx, sessionKey, limit)
}

func (s *Service) ensureConversation(ctx context.Context, sessionKey, channel string, msg domain.OutgoingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.store.GetConversation(ctx, sessionKey)
	if err != nil {
		return err
	}
	if conv != nil {
		return nil
	}

	newConv := domain.Conversation{
		ID:       sessionKey,
		Title:    conversationTitle(msg),
		Channel:  channel,
		Language: msg.LanguageCode,
	}
	if err := s.store.CreateConversation(ctx, newConv); err != nil {
		return err
	}
	s.logger.Info("created conversation", "session", sessionKey, "channel", channel)
	return nil
}

// discardStore backs the service when transcript persistence is turned
// off. Turns are routed but not recorded.
type discardStore struct{}

func (discardStore) CreateConversation(context.Context, domain.Conversation) error { return nil }
func (discardStore) GetConversation(context.Context, string) (*domain.Conversation, error) {
	return nil, nil
}
func (discardStore) ListConversations(context.Context, int) ([]domain.Conversation, error) {
	return nil, nil
}
func (discardStore) AddMessage(context.Context, string, domain.TranscriptMessage) error { return nil }
func (discardStore) GetMessages(context.Context, string, int) ([]domain.TranscriptMessage, error) {
	return nil, nil
}
func (discardStore) Prune(context.Context, time.Duration) (int64, error) { return 0, nil }
func (discardStore) Close() error                                        { return nil }

func conversationTitle(msg domain.OutgoingMessage) string {
	title := strings.TrimSpace(msg.Text)
	if title == "" && msg.Attachment != nil {
		title = msg.Attachment.Name
	}
	if title == "" {
		return "New conversation"
	}
	if idx := strings.IndexAny(title, "\n\r"); idx > 0 {
		title = title[:idx]
	}
	if len(title) > 60 {
		cut := strings.LastIndex(title[:60], " ")
		if cut < 20 {
			cut = 60
		}
		title = title[:cut] + "..."
	}
	return title
}
