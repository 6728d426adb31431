package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/hubwatch/internal/domain"
)

const (
	longPollSeconds  = 30
	errorBackoff     = 3 * time.Second
	maxUpdatesPerReq = 50

	// pollRequestTimeout bounds one getUpdates round trip. It must exceed
	// the long-poll window, or healthy empty polls would be cut short.
	pollRequestTimeout = (longPollSeconds + 15) * time.Second
)

// CommandHandler answers one chat command. The returned text is sent back
// to the originating chat; an empty result sends nothing.
type CommandHandler func(ctx context.Context, chat domain.ConversationKey, args string) (string, error)

// Listener long-polls getUpdates and routes slash commands to registered
// handlers. It is the transport driver for battle sessions and the one-shot
// query commands.
type Listener struct {
	baseURL     string
	token       string
	botName     string
	httpClient  *http.Client
	sender      *Sender
	handlers    map[string]CommandHandler
	logger      *zap.Logger
	pollTimeout time.Duration
	backoff     time.Duration

	wg     sync.WaitGroup
	offset int64
}

func NewListener(baseURL, token, botName string, httpClient *http.Client, sender *Sender, logger *zap.Logger) *Listener {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: (longPollSeconds + 10) * time.Second}
	}

	return &Listener{
		baseURL:     baseURL,
		token:       token,
		botName:     botName,
		httpClient:  httpClient,
		sender:      sender,
		handlers:    map[string]CommandHandler{},
		logger:      logger,
		pollTimeout: pollRequestTimeout,
		backoff:     errorBackoff,
	}
}

// Handle registers a handler for a slash command, given without the slash.
func (l *Listener) Handle(command string, handler CommandHandler) {
	l.handlers[command] = handler
}

// Run polls until the context is cancelled, then waits for in-flight
// handlers. Transport errors, including a wedged poll hitting its own
// deadline, are logged and retried after a short backoff; handler errors
// terminate only the affected command.
func (l *Listener) Run(ctx context.Context) error {
	defer l.wg.Wait()

	for {
		updates, err := l.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("getUpdates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.backoff):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= l.offset {
				l.offset = update.UpdateID + 1
			}
			// A slow handler (a battle round is two LLM calls, /stats
			// pages every org) must not stall the poll loop.
			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				l.dispatch(ctx, update)
			}()
		}
	}
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

func (l *Listener) dispatch(ctx context.Context, u update) {
	if u.Message == nil || !strings.HasPrefix(u.Message.Text, "/") {
		return
	}

	command, args, _ := strings.Cut(strings.TrimPrefix(u.Message.Text, "/"), " ")
	// Group chats address commands as /cmd@botname.
	command, mention, _ := strings.Cut(command, "@")
	if mention != "" && l.botName != "" && mention != l.botName {
		return
	}

	handler, ok := l.handlers[command]
	if !ok {
		return
	}

	chat := domain.ConversationKey(strconv.FormatInt(u.Message.Chat.ID, 10))
	reply, err := handler(ctx, chat, strings.TrimSpace(args))
	if err != nil {
		l.logger.Warn("command failed",
			zap.String("command", command),
			zap.String("chat", string(chat)),
			zap.Error(err))
	}
	if reply == "" {
		return
	}

	if err := l.sender.SendTo(ctx, chat, reply); err != nil {
		l.logger.Warn("command reply failed", zap.String("command", command), zap.Error(err))
	}
}

func (l *Listener) getUpdates(ctx context.Context) ([]update, error) {
	values := url.Values{}
	values.Set("timeout", strconv.Itoa(longPollSeconds))
	values.Set("limit", strconv.Itoa(maxUpdatesPerReq))
	values.Set("allowed_updates", `["message"]`)
	if l.offset > 0 {
		values.Set("offset", strconv.FormatInt(l.offset, 10))
	}

	// The per-call deadline caps a wedged connection even when the injected
	// HTTP client carries no timeout of its own.
	pollCtx, cancel := context.WithTimeout(ctx, l.pollTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", l.baseURL, l.token, values.Encode())
	req, err := http.NewRequestWithContext(pollCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create getUpdates request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll updates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read updates response: %w", err)
	}

	var apiResp struct {
		OK          bool     `json:"ok"`
		Description string   `json:"description"`
		Result      []update `json:"result"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("decode updates response: %w", err)
	}
	if !apiResp.OK {
		return nil, fmt.Errorf("getUpdates: %s", apiResp.Description)
	}

	return apiResp.Result, nil
}
