package chat

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"speakeasy/internal/domain"
)

type mockRouter struct {
	res *domain.SimplifiedResult
	err error
}

func (m *mockRouter) Simplify(ctx context.Context, msg domain.OutgoingMessage) (*domain.SimplifiedResult, error) {
	return m.res, m.err
}

type memStore struct {
	convs    map[string]domain.Conversation
	messages map[string][]domain.TranscriptMessage
	addErr   error
}

func newMemStore() *memStore {
	return &memStore{
		convs:    make(map[string]domain.Conversation),
		messages: make(map[string][]domain.TranscriptMessage),
	}
}

func (s *memStore) CreateConversation(_ context.Context, conv domain.Conversation) error {
	if _, ok := s.convs[conv.ID]; !ok {
		s.convs[conv.ID] = conv
	}
	return nil
}

func (s *memStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	if c, ok := s.convs[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (s *memStore) ListConversations(_ context.Context, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	for _, c := range s.convs {
		out = append(out, c)
	}
	return out, nil
}

func (s *memStore) AddMessage(_ context.Context, convID string, msg domain.TranscriptMessage) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.messages[convID] = append(s.messages[convID], msg)
	return nil
}

func (s *memStore) GetMessages(_ context.Context, convID string, limit int) ([]domain.TranscriptMessage, error) {
	return s.messages[convID], nil
}

func (s *memStore) Prune(_ context.Context, _ time.Duration) (int64, error) { return 0, nil }
func (s *memStore) Close() error                                            { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHandle_PersistsBothTurns(t *testing.T) {
	store := newMemStore()
	svc := New(Config{
		Router: &mockRouter{res: &domain.SimplifiedResult{Text: "Plain version", AudioRef: "data:audio/mp3;base64,AA=="}},
		Store:  store,
		Logger: testLogger(),
	})

	res, err := svc.Handle(context.Background(), "cli:default", "cli",
		domain.OutgoingMessage{Text: "Simplify this lease clause", LanguageCode: "es"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Plain version" {
		t.Fatalf("unexpected result: %+v", res)
	}

	msgs := store.messages["cli:default"]
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted turns, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[0].Content != "Simplify this lease clause" {
		t.Fatalf("user turn wrong: %+v", msgs[0])
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].AudioRef == "" {
		t.Fatalf("assistant turn wrong: %+v", msgs[1])
	}
}

func TestHandle_FailureRecordedWithErrorRole(t *testing.T) {
	store := newMemStore()
	routeErr := errors.New("no AI session available and backend request failed: connection refused")
	svc := New(Config{Router: &mockRouter{err: routeErr}, Store: store, Logger: testLogger()})

	_, err := svc.Handle(context.Background(), "cli:default", "cli",
		domain.OutgoingMessage{Text: "hello"})
	if err == nil {
		t.Fatal("expected routing error to surface")
	}

	msgs := store.messages["cli:default"]
	if len(msgs) != 2 {
		t.Fatalf("expected user + error turns, got %d", len(msgs))
	}
	if msgs[1].Role != domain.RoleError {
		t.Fatalf("failed turn must be recorded with the error role: %+v", msgs[1])
	}
	if msgs[1].Content != routeErr.Error() {
		t.Fatalf("error text must be recorded verbatim: %q", msgs[1].Content)
	}
}

func TestHandle_CreatesConversationOnce(t *testing.T) {
	store := newMemStore()
	svc := New(Config{
		Router: &mockRouter{res: &domain.SimplifiedResult{Text: "ok"}},
		Store:  store,
		Logger: testLogger(),
	})

	ctx := context.Background()
	if _, err := svc.Handle(ctx, "telegram:42", "telegram", domain.OutgoingMessage{Text: "first question here"}); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if _, err := svc.Handle(ctx, "telegram:42", "telegram", domain.OutgoingMessage{Text: "second"}); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	if len(store.convs) != 1 {
		t.Fatalf("expected a single conversation, got %d", len(store.convs))
	}
	conv := store.convs["telegram:42"]
	if conv.Channel != "telegram" || conv.Title != "first question here" {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
}

func TestHandle_AttachmentOnlyTurn(t *testing.T) {
	store := newMemStore()
	svc := New(Config{
		Router: &mockRouter{res: &domain.SimplifiedResult{Text: "ok"}},
		Store:  store,
		Logger: testLogger(),
	})

	att := &domain.Attachment{Name: "lease.pdf", Kind: domain.AttachmentPDF}
	if _, err := svc.Handle(context.Background(), "cli:default", "cli",
		domain.OutgoingMessage{Attachment: att}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := store.messages["cli:default"]
	if msgs[0].Content != "[attachment: lease.pdf]" {
		t.Fatalf("attachment-only turn content: %q", msgs[0].Content)
	}
	if store.convs["cli:default"].Title != "lease.pdf" {
		t.Fatalf("title should fall back to the filename: %q", store.convs["cli:default"].Title)
	}
}

func TestHandle_StoreFailureDoesNotBlockReply(t *testing.T) {
	store := newMemStore()
	store.addErr = errors.New("disk full")
	svc := New(Config{
		Router: &mockRouter{res: &domain.SimplifiedResult{Text: "still works"}},
		Store:  store,
		Logger: testLogger(),
	})

	res, err := svc.Handle(context.Background(), "cli:default", "cli",
		domain.OutgoingMessage{Text: "hello"})
	if err != nil {
		t.Fatalf("store failure must not fail the turn: %v", err)
	}
	if res.Text != "still works" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestConversationTitle_Truncates(t *testing.T) {
	long := "This is a very long first message that should be shortened to a readable conversation title"
	got := conversationTitle(domain.OutgoingMessage{Text: long})
	if len(got) > 64 {
		t.Fatalf("title too long: %q", got)
	}
}
