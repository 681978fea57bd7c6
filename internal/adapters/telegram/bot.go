// Package telegram is the chat transport: a long-polling bot that feeds
// messages to the conversational agent and replies with its formatted
// answers. Each Telegram chat maps to one agent session, so follow-up
// questions resolve against that chat's context.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"pythia/internal/services/agent"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// askTimeout bounds one answer end to end, planner call included.
const askTimeout = 90 * time.Second

const greeting = `Hi! I answer questions about Polymarket.

Ask me things like:
- top 5 markets by volume
- recent trades for 0x<condition id>
- tell me about trader 0x<address>
- order book for that market

/clear forgets the conversation context.`

// Agent answers free-form questions through the AI planner.
type Agent interface {
	Ask(ctx context.Context, req agent.AskRequest) (*agent.AskResponse, error)
}

// Dispatcher answers keyword queries without an AI provider.
type Dispatcher interface {
	Handle(ctx context.Context, text string) (string, error)
}

// Sessions clears per-chat conversation context.
type Sessions interface {
	Clear(ctx context.Context, sessionID string) error
}

// Config contains Telegram bot configuration.
type Config struct {
	Token          string
	Debug          bool
	Timeout        int // update long-poll timeout in seconds
	HTTPTimeout    time.Duration
	RateLimitBurst int
	RateLimitRate  int // messages per second
}

// Bot is a long-polling Telegram bot instance.
type Bot struct {
	api        *tgbotapi.BotAPI
	agent      Agent      // nil falls back to the dispatcher
	dispatcher Dispatcher // nil when agent is wired and dispatcher is not
	sessions   Sessions
	limiter    *rate.Limiter
	log        *logger.Logger

	mu      sync.Mutex
	running bool
}

// NewBot creates a Telegram bot. agentSvc may be nil; queries then route
// through the keyword dispatcher only.
func NewBot(cfg Config, agentSvc Agent, dispatcher Dispatcher, sessions Sessions, log *logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot token is required")
	}
	if agentSvc == nil && dispatcher == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot needs an agent or a dispatcher")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 120 * time.Second
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 30
	}
	if cfg.RateLimitRate == 0 {
		cfg.RateLimitRate = 20 // Telegram's global limit is 30 msg/sec
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	api.Debug = cfg.Debug

	log = log.With("component", "telegram_bot")
	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:        api,
		agent:      agentSvc,
		dispatcher: dispatcher,
		sessions:   sessions,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
		log:        log,
	}, nil
}

// Start polls for updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.mu.Unlock()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Infow("Telegram bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.Stop()
			return nil
		case update := <-updates:
			// Answers can take a minute; never block the poll loop.
			go b.handleUpdate(ctx, update)
		}
	}
}

// Stop stops polling.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.api.StopReceivingUpdates()
	b.running = false
	b.log.Infow("Telegram bot stopped")
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message
	text := strings.TrimSpace(msg.Text)

	b.log.Debugw("Handling message",
		"chat_id", msg.Chat.ID,
		"from", msg.From.UserName,
	)

	ctx, cancel := context.WithTimeout(ctx, askTimeout)
	defer cancel()

	var reply string
	switch {
	case msg.IsCommand():
		reply = b.handleCommand(ctx, msg)
	default:
		b.sendTyping(msg.Chat.ID)
		reply = b.answer(ctx, msg.Chat.ID, text)
	}
	if reply == "" {
		return
	}
	if err := b.send(ctx, msg.Chat.ID, reply); err != nil {
		b.log.Errorw("Failed to send reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) string {
	switch msg.Command() {
	case "start", "help":
		return greeting
	case "clear":
		if b.sessions == nil {
			return "Context cleared."
		}
		if err := b.sessions.Clear(ctx, sessionID(msg.Chat.ID)); err != nil {
			b.log.Warnw("Failed to clear session", "chat_id", msg.Chat.ID, "error", err)
			return "Failed to clear context, please try again."
		}
		return "Context cleared."
	default:
		return "Unknown command. Try /help."
	}
}

// answer routes a plain-text question: through the agent when an AI
// provider is configured, through the keyword dispatcher otherwise.
func (b *Bot) answer(ctx context.Context, chatID int64, text string) string {
	if b.agent == nil {
		out, err := b.dispatcher.Handle(ctx, text)
		if err != nil {
			b.log.Errorw("Dispatcher failed", "chat_id", chatID, "error", err)
			return "Something went wrong, please try again."
		}
		return out
	}

	resp, err := b.agent.Ask(ctx, agent.AskRequest{
		Query:     text,
		SessionID: sessionID(chatID),
		Execute:   true,
		Format:    agent.FormatText,
	})
	if err != nil {
		b.log.Errorw("Agent ask failed", "chat_id", chatID, "error", err)
		return "Something went wrong, please try again."
	}
	if resp.Error != "" {
		return resp.Error
	}
	return resp.Result.(string)
}

// send delivers one message, chunked to Telegram's 4096-char limit. Replies
// go out as plain text: answers carry raw addresses and model prose that
// Markdown parsing would reject.
func (b *Bot) send(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range splitMessage(text, 4096) {
		if err := b.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter wait failed")
		}
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return errors.Wrap(err, "failed to send message")
		}
	}
	return nil
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.Debugw("Failed to send typing action", "chat_id", chatID, "error", err)
	}
}

func sessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// splitMessage splits text into chunks of at most limit runes, preferring
// line boundaries.
func splitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
