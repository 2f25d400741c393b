// Package telegram delivers completion and failure notices through the
// Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelvault/internal/logging"
	"reelvault/internal/services"
)

const defaultAPIBase = "https://api.telegram.org"

// Service sends operator notifications. Implementations must be safe for
// concurrent use.
type Service interface {
	// SendMessage delivers a Markdown-formatted text message.
	SendMessage(ctx context.Context, text string) error
	// SendDocument uploads a file with an optional caption.
	SendDocument(ctx context.Context, path, caption string) error
	// Available reports whether notifications are configured.
	Available() bool
}

// Config carries the settings a bot service needs.
type Config struct {
	BotToken        string
	ChatID          string
	MessageTimeout  time.Duration
	DocumentTimeout time.Duration
	// APIBase overrides the Telegram endpoint, primarily for tests.
	APIBase string
}

// New returns a bot-backed Service when a token and chat are configured, and
// a no-op Service otherwise so callers never need nil checks.
func New(cfg Config, logger *slog.Logger) Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(cfg.BotToken) == "" || strings.TrimSpace(cfg.ChatID) == "" {
		logger.Info("telegram notifications disabled: bot token or chat id not configured")
		return noopService{}
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = 10 * time.Second
	}
	if cfg.DocumentTimeout <= 0 {
		cfg.DocumentTimeout = 30 * time.Second
	}
	return &botService{cfg: cfg, client: &http.Client{}, logger: logger}
}

type botService struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func (s *botService) Available() bool { return true }

func (s *botService) SendMessage(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.MessageTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("chat_id", s.cfg.ChatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.cfg.APIBase, s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return services.Wrap(services.ErrTransient, "notify", "send message", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, "send message")
}

func (s *botService) SendDocument(ctx context.Context, path, caption string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DocumentTimeout)
	defer cancel()

	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notify", "send document", "open document", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", s.cfg.ChatID); err != nil {
		return services.Wrap(services.ErrTransient, "notify", "send document", "encode form", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return services.Wrap(services.ErrTransient, "notify", "send document", "encode form", err)
		}
	}
	part, err := writer.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return services.Wrap(services.ErrTransient, "notify", "send document", "encode form", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return services.Wrap(services.ErrTransient, "notify", "send document", "read document", err)
	}
	if err := writer.Close(); err != nil {
		return services.Wrap(services.ErrTransient, "notify", "send document", "finalize form", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendDocument", s.cfg.APIBase, s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notify", "send document", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return s.do(req, "send document")
}

func (s *botService) do(req *http.Request, operation string) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notify", operation, "telegram request failed", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "notify", operation,
			fmt.Sprintf("telegram returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	var status struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(payload, &status); err == nil && !status.OK {
		return services.Wrap(services.ErrTransient, "notify", operation,
			fmt.Sprintf("telegram rejected request: %s", status.Description), nil)
	}
	return nil
}

type noopService struct{}

func (noopService) Available() bool                                   { return false }
func (noopService) SendMessage(context.Context, string) error         { return nil }
func (noopService) SendDocument(context.Context, string, string) error { return nil }

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"`", "\\`",
)

// EscapeMarkdown escapes the characters Telegram's legacy Markdown parser
// treats as formatting. Summary bodies are sent unescaped so the model's own
// formatting renders.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
