package channel

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"speakeasy/internal/chat"
	"speakeasy/internal/domain"
	"speakeasy/internal/language"
)

type stubRouter struct {
	res  *domain.SimplifiedResult
	last domain.OutgoingMessage
}

func (s *stubRouter) Simplify(ctx context.Context, msg domain.OutgoingMessage) (*domain.SimplifiedResult, error) {
	s.last = msg
	return s.res, nil
}

type nopStore struct{}

func (nopStore) CreateConversation(context.Context, domain.Conversation) error { return nil }
func (nopStore) GetConversation(context.Context, string) (*domain.Conversation, error) {
	return nil, nil
}
func (nopStore) ListConversations(context.Context, int) ([]domain.Conversation, error) {
	return nil, nil
}
func (nopStore) AddMessage(context.Context, string, domain.TranscriptMessage) error { return nil }
func (nopStore) GetMessages(context.Context, string, int) ([]domain.TranscriptMessage, error) {
	return nil, nil
}
func (nopStore) Prune(context.Context, time.Duration) (int64, error) { return 0, nil }
func (nopStore) Close() error                                        { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCLI(t *testing.T, router *stubRouter, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	svc := chat.New(chat.Config{Router: router, Store: nopStore{}, Logger: testLogger()})
	out := &bytes.Buffer{}
	cli := NewCLI(CLIConfig{
		Chat:     svc,
		Resolver: language.NewResolver(),
		Language: "es",
		AudioDir: t.TempDir(),
		Logger:   testLogger(),
		In:       strings.NewReader(input),
		Out:      out,
	})
	return cli, out
}

func TestCLI_SubmitRendersReply(t *testing.T) {
	router := &stubRouter{res: &domain.SimplifiedResult{Text: "Plain version"}}
	cli, out := testCLI(t, router, "simplify my lease\n/quit\n")

	if err := cli.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(out.String(), "Plain version") {
		t.Fatalf("reply not rendered:\n%s", out.String())
	}
	if router.last.LanguageCode != "es" {
		t.Fatalf("language code not forwarded: %q", router.last.LanguageCode)
	}
}

func TestCLI_LangCommandSwitchesLanguage(t *testing.T) {
	router := &stubRouter{res: &domain.SimplifiedResult{Text: "ok"}}
	cli, out := testCLI(t, router, "/lang vi\nhello\n/quit\n")

	if err := cli.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(out.String(), "Vietnamese") {
		t.Fatalf("language switch not confirmed:\n%s", out.String())
	}
	if router.last.LanguageCode != "vi" {
		t.Fatalf("submission should carry the new code: %q", router.last.LanguageCode)
	}
}

func TestCLI_EmbeddedAudioWrittenToFile(t *testing.T) {
	router := &stubRouter{res: &domain.SimplifiedResult{
		Text:     "ok",
		AudioRef: "data:audio/mp3;base64,SUQz", // "ID3"
	}}
	cli, out := testCLI(t, router, "hello\n/quit\n")

	if err := cli.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(out.String(), "Audio:") {
		t.Fatalf("audio path not shown:\n%s", out.String())
	}
}

func TestCLI_EOFExitsCleanly(t *testing.T) {
	router := &stubRouter{res: &domain.SimplifiedResult{Text: "ok"}}
	cli, _ := testCLI(t, router, "")
	if err := cli.Start(context.Background()); err != nil {
		t.Fatalf("EOF should not be an error: %v", err)
	}
}

func TestAttachmentFromBytes_Kinds(t *testing.T) {
	cases := []struct {
		name string
		kind domain.AttachmentKind
	}{
		{"letter.txt", domain.AttachmentText},
		{"notice.PDF", domain.AttachmentPDF},
		{"scan.jpg", domain.AttachmentImage},
		{"scan.png", domain.AttachmentImage},
		{"README", domain.AttachmentText},
	}
	for _, tc := range cases {
		att := attachmentFromBytes(tc.name, []byte("payload"))
		if att.Kind != tc.kind {
			t.Fatalf("%s: kind = %q, want %q", tc.name, att.Kind, tc.kind)
		}
	}
}

func TestAttachmentFromBytes_BinaryRoundTrip(t *testing.T) {
	raw := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}
	att := attachmentFromBytes("doc.pdf", raw)

	data, mime, err := att.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if mime != "application/pdf" {
		t.Fatalf("mime = %q", mime)
	}
	if !bytes.Equal(data, raw) {
		t.Fatalf("payload altered: %v", data)
	}
}

func TestAttachmentFromBytes_TextKeptRaw(t *testing.T) {
	att := attachmentFromBytes("letter.txt", []byte("Dear tenant,"))
	if att.Content != "Dear tenant," {
		t.Fatalf("text attachments must not be encoded: %q", att.Content)
	}
}
