package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"speakeasy/internal/chat"
	"speakeasy/internal/domain"
	"speakeasy/internal/language"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
	telegramMaxFileBytes   = 20 * 1024 * 1024 // Bot API download limit
)

// Telegram is the Telegram bot channel.
type Telegram struct {
	token     string
	allowFrom []int64 // allowed user IDs, empty allows all
	defLang   string
	parseMode string

	chat     *chat.Service
	resolver *language.Resolver
	bot      *tgbotapi.BotAPI
	http     *http.Client
	logger   *slog.Logger

	// chatLang holds the per-chat target language set with /lang.
	chatLang   map[int64]string
	chatLangMu sync.Mutex
}

type TelegramConfig struct {
	Token     string
	AllowFrom []string // user IDs as strings
	Language  string   // default language code
	ParseMode string
	Chat      *chat.Service
	Resolver  *language.Resolver
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &Telegram{
		token:     cfg.Token,
		allowFrom: allowed,
		defLang:   cfg.Language,
		parseMode: cfg.ParseMode,
		chat:      cfg.Chat,
		resolver:  cfg.Resolver,
		http:      &http.Client{Timeout: 60 * time.Second},
		logger:    cfg.Logger,
		chatLang:  make(map[int64]string),
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and polls for updates until the context is
// cancelled.
func (t *Telegram) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user",
			"user_id", userID,
			"username", update.Message.From.UserName,
		)
		t.sendMessage(chatID, "Unauthorized. Your user ID is not in the allow list.")
		return
	}

	if update.Message.IsCommand() {
		t.handleCommand(chatID, update.Message)
		return
	}

	msg, err := t.buildMessage(chatID, update.Message)
	if err != nil {
		t.logger.Warn("cannot build message", "chat_id", chatID, "error", err)
		t.sendMessage(chatID, "Sorry, I could not read that file. Please try again.")
		return
	}
	if msg == nil {
		return // nothing to process
	}

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	res, err := t.chat.Handle(ctx, t.sessionKey(chatID), "telegram", *msg)
	if err != nil {
		t.sendMessage(chatID, "Something went wrong: "+err.Error())
		return
	}

	t.sendMessage(chatID, res.Text)
	t.sendAudio(chatID, res)
}

// buildMessage converts a Telegram message into a routed submission:
// plain text, a document attachment, or a photo attachment. Returns nil
// when there is nothing to route.
func (t *Telegram) buildMessage(chatID int64, m *tgbotapi.Message) (*domain.OutgoingMessage, error) {
	lang := t.language(chatID)

	if doc := m.Document; doc != nil {
		if doc.FileSize > telegramMaxFileBytes {
			return nil, fmt.Errorf("file too large: %d bytes", doc.FileSize)
		}
		data, err := t.download(doc.FileID)
		if err != nil {
			return nil, err
		}
		name := doc.FileName
		if name == "" {
			name = "document"
		}
		return &domain.OutgoingMessage{
			Text:         strings.TrimSpace(m.Caption),
			LanguageCode: lang,
			Attachment:   attachmentFromBytes(name, data),
		}, nil
	}

	if len(m.Photo) > 0 {
		largest := m.Photo[len(m.Photo)-1]
		data, err := t.download(largest.FileID)
		if err != nil {
			return nil, err
		}
		return &domain.OutgoingMessage{
			Text:         strings.TrimSpace(m.Caption),
			LanguageCode: lang,
			Attachment: &domain.Attachment{
				Name:    "photo.jpg",
				Kind:    domain.AttachmentImage,
				Content: domain.BinaryDataURL("image/jpeg", data),
			},
		}, nil
	}

	text := strings.TrimSpace(m.Text)
	if text == "" {
		return nil, nil
	}
	return &domain.OutgoingMessage{Text: text, LanguageCode: lang}, nil
}

func (t *Telegram) download(fileID string) ([]byte, error) {
	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file URL: %w", err)
	}
	resp, err := t.http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, telegramMaxFileBytes+1))
}

func (t *Telegram) handleCommand(chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		t.sendMessage(chatID, "Hello! Send me a message or a document and I'll explain it in plain language.\n\nCommands:\n/lang <code> — Set your language (e.g. /lang es)\n/help — Show help")
	case "help":
		t.sendMessage(chatID, "Send me:\n• A confusing text to simplify\n• A .txt or .pdf document\n• A photo of a document\n\nI reply in plain language, with audio, in your chosen language.\n\n/lang <code> — Set language (es, vi, zh, ...)")
	case "lang":
		code := strings.TrimSpace(msg.CommandArguments())
		if code == "" {
			t.sendMessage(chatID, fmt.Sprintf("Current language: %s", t.resolver.Resolve(t.language(chatID))))
			return
		}
		t.chatLangMu.Lock()
		t.chatLang[chatID] = code
		t.chatLangMu.Unlock()
		t.sendMessage(chatID, fmt.Sprintf("Language set to %s.", t.resolver.Resolve(code)))
	default:
		t.sendMessage(chatID, "Unknown command. Type /help for available commands.")
	}
}

func (t *Telegram) language(chatID int64) string {
	t.chatLangMu.Lock()
	defer t.chatLangMu.Unlock()
	if code, ok := t.chatLang[chatID]; ok {
		return code
	}
	return t.defLang
}

func (t *Telegram) sessionKey(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

// sendAudio delivers the spoken version of a reply. Embedded audio is
// uploaded as bytes; remote references are passed by URL for Telegram to
// fetch.
func (t *Telegram) sendAudio(chatID int64, res *domain.SimplifiedResult) {
	if res.AudioRef == "" {
		return
	}
	var audio tgbotapi.AudioConfig
	if data, ok := res.AudioData(); ok {
		audio = tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{Name: "reply.mp3", Bytes: data})
	} else {
		audio = tgbotapi.NewAudio(chatID, tgbotapi.FileURL(res.AudioRef))
	}
	if _, err := t.bot.Send(audio); err != nil {
		t.logger.Warn("telegram audio send failed", "chat_id", chatID, "err", err)
	}
}

func (t *Telegram) sendMessage(chatID int64, text string) {
	// Telegram caps messages at 4096 chars
	const maxLen = telegramMaxMsgLen
	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxLen {
			cutAt := strings.LastIndex(chunk[:maxLen], "\n")
			if cutAt < maxLen/2 {
				cutAt = maxLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		t.sendChunk(chatID, chunk)
	}
}

// sendChunk sends one message chunk with retry and rate limit handling.
// Parse mode applies on the first attempt only; a parse error falls back
// to plain text.
func (t *Telegram) sendChunk(chatID int64, text string) {
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}

		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		errStr := err.Error()
		if attempt == 0 && msg.ParseMode != "" && strings.Contains(errStr, "can't parse entities") {
			plain := tgbotapi.NewMessage(chatID, text)
			if _, err2 := t.bot.Send(plain); err2 == nil {
				return
			}
		}
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		if attempt < telegramMaxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed after retries", "err", err, "attempts", telegramMaxSendRetries+1)
	}
}
