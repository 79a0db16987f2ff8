package domain

import (
	"context"
	"time"
)

// Message roles in the transcript. Failed turns are appended as
// RoleError so the conversation view can re-render them visibly marked.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleError     = "error"
)

// Conversation is one chat thread on a channel.
type Conversation struct {
	ID        string
	Title     string
	Channel   string
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TranscriptMessage is one persisted chat turn.
type TranscriptMessage struct {
	ID             int64
	ConversationID string
	Role           string
	Content        string
	AudioRef       string
	CreatedAt      time.Time
}

// TranscriptStore persists conversations and their messages.
type TranscriptStore interface {
	CreateConversation(ctx context.Context, conv Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, limit int) ([]Conversation, error)
	AddMessage(ctx context.Context, convID string, msg TranscriptMessage) error
	GetMessages(ctx context.Context, convID string, limit int) ([]TranscriptMessage, error)
	Prune(ctx context.Context, retention time.Duration) (int64, error)
	Close() error
}
