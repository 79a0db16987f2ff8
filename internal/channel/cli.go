package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"speakeasy/internal/chat"
	"speakeasy/internal/domain"
	"speakeasy/internal/language"
)

// CLI is the interactive terminal channel.
type CLI struct {
	chat     *chat.Service
	resolver *language.Resolver
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer
	audioDir string

	langCode string

	thinking  bool
	thinkMu   sync.Mutex
	thinkStop chan struct{}
}

type CLIConfig struct {
	Chat     *chat.Service
	Resolver *language.Resolver
	Language string // initial language code
	AudioDir string // where synthesized replies are written
	Logger   *slog.Logger
	In       io.Reader
	Out      io.Writer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = os.TempDir()
	}
	return &CLI{
		chat:     cfg.Chat,
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
		in:       cfg.In,
		out:      cfg.Out,
		audioDir: cfg.AudioDir,
		langCode: cfg.Language,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the interactive REPL and blocks until the context is
// cancelled or the user quits.
func (c *CLI) Start(ctx context.Context) error {
	_, _ = fmt.Fprintln(c.out, "SpeakEasy CLI. Type a message, /file <path> to process a document, /help for commands.")
	_, _ = fmt.Fprintf(c.out, "Language: %s\n", c.resolver.Resolve(c.langCode))
	_, _ = fmt.Fprint(c.out, "You> ")

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			_, _ = fmt.Fprint(c.out, "You> ")
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := c.handleCommand(ctx, line); quit {
				return nil
			}
			_, _ = fmt.Fprint(c.out, "You> ")
			continue
		}

		c.submit(ctx, domain.OutgoingMessage{Text: line, LanguageCode: c.langCode})
		_, _ = fmt.Fprint(c.out, "You> ")
	}
}

// handleCommand processes a slash command and reports whether the REPL
// should exit.
func (c *CLI) handleCommand(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/quit", "/exit", "/q":
		c.logger.Info("user requested quit")
		return true

	case "/lang":
		if rest == "" {
			_, _ = fmt.Fprintf(c.out, "Current language: %s (%s)\n", c.resolver.Resolve(c.langCode), c.langCode)
			return false
		}
		if !c.resolver.Known(rest) {
			_, _ = fmt.Fprintf(c.out, "Unknown language code %q; requests will use %q.\n", rest, language.FallbackLabel)
		}
		c.langCode = rest
		_, _ = fmt.Fprintf(c.out, "Language set to %s.\n", c.resolver.Resolve(c.langCode))

	case "/file":
		if rest == "" {
			_, _ = fmt.Fprintln(c.out, "Usage: /file <path> [message]")
			return false
		}
		path := rest
		var text string
		if i := strings.IndexByte(rest, ' '); i > 0 {
			path, text = rest[:i], strings.TrimSpace(rest[i+1:])
		}
		att, err := attachmentFromFile(path)
		if err != nil {
			_, _ = fmt.Fprintf(c.out, "Cannot read %s: %v\n", path, err)
			return false
		}
		c.submit(ctx, domain.OutgoingMessage{Text: text, LanguageCode: c.langCode, Attachment: att})

	case "/history":
		msgs, err := c.chat.History(ctx, c.sessionKey(), 20)
		if err != nil {
			_, _ = fmt.Fprintf(c.out, "Cannot load history: %v\n", err)
			return false
		}
		for _, m := range msgs {
			_, _ = fmt.Fprintf(c.out, "[%s] %s\n", m.Role, m.Content)
		}

	case "/help":
		_, _ = fmt.Fprintln(c.out, `Commands:
/lang <code>     Set the target language (e.g. es, vi, zh)
/file <path>     Simplify a text or PDF document
/history         Show recent turns
/quit            Exit`)

	default:
		_, _ = fmt.Fprintln(c.out, "Unknown command. Type /help for available commands.")
	}
	return false
}

func (c *CLI) submit(ctx context.Context, msg domain.OutgoingMessage) {
	c.startThinking()
	res, err := c.chat.Handle(ctx, c.sessionKey(), "cli", msg)
	c.stopThinking()
	_, _ = fmt.Fprint(c.out, "\r\033[K")

	if err != nil {
		_, _ = fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	_, _ = fmt.Fprintln(c.out, "--- SpeakEasy ---")
	_, _ = fmt.Fprintln(c.out, res.Text)
	if ref := c.audioRef(res); ref != "" {
		_, _ = fmt.Fprintln(c.out, "Audio:", ref)
	}
	_, _ = fmt.Fprintln(c.out, "-----------------")
}

// audioRef returns something the user can open: embedded audio is written
// to a file, remote references pass through as-is.
func (c *CLI) audioRef(res *domain.SimplifiedResult) string {
	if res.AudioRef == "" {
		return ""
	}
	data, ok := res.AudioData()
	if !ok {
		return res.AudioRef
	}
	path := filepath.Join(c.audioDir, fmt.Sprintf("speakeasy-%d.mp3", time.Now().UnixMilli()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.logger.Warn("cannot write audio file", "path", path, "error", err)
		return ""
	}
	return path
}

func (c *CLI) sessionKey() string { return "cli:default" }

func (c *CLI) startThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinking {
		return
	}
	c.thinking = true
	c.thinkStop = make(chan struct{})
	go func() {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-c.thinkStop:
				return
			case <-ticker.C:
				fmt.Fprintf(c.out, "\r%s Thinking...", frames[i%len(frames)])
				i++
			}
		}
	}()
}

func (c *CLI) stopThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if !c.thinking {
		return
	}
	c.thinking = false
	close(c.thinkStop)
}
