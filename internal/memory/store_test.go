package memory

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"speakeasy/internal/domain"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "transcripts.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConversationRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	conv := domain.Conversation{ID: "c1", Title: "Benefits form", Channel: "cli", Language: "es"}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Title != "Benefits form" || got.Channel != "cli" || got.Language != "es" {
		t.Fatalf("unexpected conversation: %+v", got)
	}
}

func TestGetConversation_MissingReturnsNil(t *testing.T) {
	store := testStore(t)
	got, err := store.GetConversation(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestMessagesChronologicalOrder(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.CreateConversation(ctx, domain.Conversation{ID: "c1", Channel: "cli"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	base := time.Now().Add(-time.Minute)
	turns := []domain.TranscriptMessage{
		{Role: domain.RoleUser, Content: "simplify this", CreatedAt: base},
		{Role: domain.RoleAssistant, Content: "sure", AudioRef: "data:audio/mp3;base64,AA==", CreatedAt: base.Add(time.Second)},
		{Role: domain.RoleError, Content: "backend request failed", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, m := range turns {
		if err := store.AddMessage(ctx, "c1", m); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	msgs, err := store.GetMessages(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[2].Role != domain.RoleError {
		t.Fatalf("messages out of order: %+v", msgs)
	}
	if msgs[1].AudioRef != "data:audio/mp3;base64,AA==" {
		t.Fatalf("audio ref not persisted: %q", msgs[1].AudioRef)
	}
}

func TestGetMessages_LimitKeepsLatest(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.CreateConversation(ctx, domain.Conversation{ID: "c1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		msg := domain.TranscriptMessage{
			Role:      domain.RoleUser,
			Content:   string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.AddMessage(ctx, "c1", msg); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	msgs, err := store.GetMessages(ctx, "c1", 2)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "d" || msgs[1].Content != "e" {
		t.Fatalf("expected the 2 latest messages oldest-first, got %+v", msgs)
	}
}

func TestListConversations_MostRecentFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	if err := store.CreateConversation(ctx, domain.Conversation{ID: "old", CreatedAt: old, UpdatedAt: old}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateConversation(ctx, domain.Conversation{ID: "new"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	convs, err := store.ListConversations(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 || convs[0].ID != "new" {
		t.Fatalf("unexpected order: %+v", convs)
	}
}

func TestPrune_RemovesIdleConversations(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	stale := time.Now().Add(-48 * time.Hour)
	if err := store.CreateConversation(ctx, domain.Conversation{ID: "stale", CreatedAt: stale, UpdatedAt: stale}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := store.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		"stale", domain.RoleUser, "hello", stale)
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
	if err := store.CreateConversation(ctx, domain.Conversation{ID: "fresh"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	removed, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned conversation, got %d", removed)
	}

	if got, _ := store.GetConversation(ctx, "stale"); got != nil {
		t.Fatal("stale conversation survived prune")
	}
	if got, _ := store.GetConversation(ctx, "fresh"); got == nil {
		t.Fatal("fresh conversation was pruned")
	}
	msgs, err := store.GetMessages(ctx, "stale", 10)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("orphan messages left behind: %+v", msgs)
	}
}

func TestPrune_ZeroRetentionIsNoop(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.CreateConversation(ctx, domain.Conversation{ID: "c1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	removed, err := store.Prune(ctx, 0)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected noop, removed %d", removed)
	}
}
