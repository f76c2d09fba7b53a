// Package telegram is the Telegram transport: slash commands, chat posts and
// direct messages rendered as HTML.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/todo-relay/internal/commands"
	"github.com/ykvlv/todo-relay/internal/digest"
)

// Prefix starts every command message, e.g. "/today".
const Prefix = "/"

// messageLimit is the Telegram maximum message length.
const messageLimit = 4096

// api is the part of *tgbotapi.BotAPI the router calls.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Router wires Telegram updates to the command handler and delivers
// scheduled messages.
type Router struct {
	bot     *tgbotapi.BotAPI
	api     api
	log     *zap.Logger
	handler *commands.Handler
}

// New connects to the Bot API with token.
func New(token string, handler *commands.Handler, log *zap.Logger) (*Router, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = false

	r := NewRouter(bot, handler, log)
	r.bot = bot
	return r, nil
}

// NewRouter creates a router over an already connected client.
func NewRouter(a api, handler *commands.Handler, log *zap.Logger) *Router {
	return &Router{api: a, log: log, handler: handler}
}

// Style returns the HTML style used for every Telegram message.
func (r *Router) Style() digest.Style { return digest.HTMLStyle{} }

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if msg.From != nil && msg.From.IsBot {
		return
	}
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	name, ok := commands.Parse(text, Prefix)
	if !ok {
		return
	}
	switch name {
	case "start", "help":
		r.handleStart(chatID)
	default:
		r.handleCommand(ctx, chatID, name)
	}
}

// SendChannel posts text to a group or channel chat id.
func (r *Router) SendChannel(ctx context.Context, channelID, text string) error {
	chatID, err := parseChatID(channelID)
	if err != nil {
		return err
	}
	return r.send(ctx, chatID, text)
}

// SendDirect sends text to a user's private chat. In Telegram the private
// chat id equals the user id.
func (r *Router) SendDirect(ctx context.Context, userID, text string) error {
	chatID, err := parseChatID(userID)
	if err != nil {
		return err
	}
	return r.send(ctx, chatID, text)
}

func (r *Router) send(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range digest.Split(text, messageLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := r.api.Send(msg); err != nil {
			return fmt.Errorf("send to chat %d: %w", chatID, err)
		}
	}
	return nil
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram chat id %q: %w", s, err)
	}
	return id, nil
}

// Run registers the command menu and polls updates until ctx is done.
func (r *Router) Run(ctx context.Context) error {
	if _, err := r.api.Request(tgbotapi.NewSetMyCommands(botCommands()...)); err != nil {
		r.log.Warn("set bot commands failed", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := r.bot.GetUpdatesChan(u)
	r.log.Info("telegram polling started", zap.String("bot", r.bot.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			r.log.Info("telegram polling stopped")
			return nil
		case upd, ok := <-updCh:
			if !ok {
				return nil
			}
			// Commands run outside the polling loop so a slow provider
			// does not hold up other chats.
			go r.HandleUpdate(ctx, upd)
		}
	}
}
