package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bnema/hubwatch/internal/domain"
	"github.com/bnema/hubwatch/internal/ports"
)

const (
	defaultAPIBaseURL = "https://api.telegram.org"
	maxResponseBytes  = 1 << 20
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// Sender posts messages through the Bot API. Announcements go to the
// configured chat; the listener uses SendTo to answer arbitrary chats.
type Sender struct {
	baseURL        string
	token          string
	chatID         string
	httpClient     *http.Client
	requestTimeout time.Duration
}

var _ ports.Notifier = (*Sender)(nil)

func NewSender(baseURL, token, chatID string, httpClient *http.Client, requestTimeout time.Duration) *Sender {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Sender{
		baseURL:        baseURL,
		token:          token,
		chatID:         chatID,
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
	}
}

func (s *Sender) Send(ctx context.Context, text string) error {
	return s.SendTo(ctx, domain.ConversationKey(s.chatID), text)
}

// SendTo delivers one HTML message. When the Bot API rejects the markup it
// falls back to a plain-text rendition, so a malformed LLM output can not
// swallow a notification.
func (s *Sender) SendTo(ctx context.Context, chat domain.ConversationKey, text string) error {
	err := s.sendMessage(ctx, chat, text, true)
	if err == nil {
		return nil
	}
	if !strings.Contains(err.Error(), "can't parse entities") {
		return err
	}

	plain := htmlTagRe.ReplaceAllString(text, "")
	return s.sendMessage(ctx, chat, plain, false)
}

func (s *Sender) sendMessage(ctx context.Context, chat domain.ConversationKey, text string, html bool) error {
	values := url.Values{}
	values.Set("chat_id", string(chat))
	values.Set("text", text)
	values.Set("disable_web_page_preview", "true")
	if html {
		values.Set("parse_mode", "HTML")
	}

	requestCtx, cancel := s.requestContext(ctx)
	defer cancel()

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read send response: %v", domain.ErrDelivery, err)
	}

	var apiResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("%w: decode send response: %v", domain.ErrDelivery, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("%w: %s", domain.ErrDelivery, apiResp.Description)
	}

	return nil
}

func (s *Sender) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, s.requestTimeout)
}
