// Package discord is the Discord transport: prefix commands, channel posts,
// direct messages and lounge presence.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/ykvlv/todo-relay/internal/commands"
	"github.com/ykvlv/todo-relay/internal/digest"
	"github.com/ykvlv/todo-relay/internal/presence"
)

// Prefix starts every command message, e.g. "!today".
const Prefix = "!"

// messageLimit is the Discord maximum message length.
const messageLimit = 2000

// api is the part of *discordgo.Session the bot calls.
type api interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// SendObserver is told about every presence announcement.
type SendObserver interface {
	ObserveSend(kind string, err error)
}

// Bot connects the relay to one Discord bot account.
type Bot struct {
	session *discordgo.Session
	api     api
	log     *zap.Logger

	handler         *commands.Handler
	tracker         *presence.Tracker
	presenceChannel string
	obs             SendObserver

	mu  sync.RWMutex
	ctx context.Context // set by Run, read by event handlers

	dmMu sync.Mutex
	dms  map[string]string // user id -> DM channel id
}

// Options configure optional bot features.
type Options struct {
	Tracker           *presence.Tracker
	PresenceChannelID string
	Observer          SendObserver
}

// New creates a Bot. The gateway connection is opened by Run.
func New(token string, handler *commands.Handler, log *zap.Logger, opts Options) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	b := newBot(s, handler, log, opts)
	b.session = s
	s.AddHandler(b.onReady)
	s.AddHandler(b.onGuildCreate)
	s.AddHandler(b.onMessageCreate)
	s.AddHandler(b.onVoiceStateUpdate)
	return b, nil
}

func newBot(a api, handler *commands.Handler, log *zap.Logger, opts Options) *Bot {
	return &Bot{
		api:             a,
		log:             log,
		handler:         handler,
		tracker:         opts.Tracker,
		presenceChannel: opts.PresenceChannelID,
		obs:             opts.Observer,
		ctx:             context.Background(),
		dms:             make(map[string]string),
	}
}

// Style returns the Discord markdown style.
func (b *Bot) Style() digest.Style { return digest.DiscordStyle{} }

// Run opens the gateway connection and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	b.log.Info("discord connected")

	<-ctx.Done()
	b.log.Info("discord disconnecting")
	if err := b.session.Close(); err != nil {
		b.log.Warn("discord close", zap.Error(err))
	}
	return nil
}

func (b *Bot) context() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

// SendChannel posts text to a channel, split to the message limit.
func (b *Bot) SendChannel(ctx context.Context, channelID, text string) error {
	for _, chunk := range digest.Split(text, messageLimit) {
		if _, err := b.api.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send to channel %s: %w", channelID, err)
		}
	}
	return nil
}

// SendDirect sends text as a direct message to a user.
func (b *Bot) SendDirect(ctx context.Context, userID, text string) error {
	channelID, err := b.dmChannel(ctx, userID)
	if err != nil {
		return err
	}
	return b.SendChannel(ctx, channelID, text)
}

func (b *Bot) dmChannel(ctx context.Context, userID string) (string, error) {
	b.dmMu.Lock()
	defer b.dmMu.Unlock()

	if id, ok := b.dms[userID]; ok {
		return id, nil
	}
	ch, err := b.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("open dm with %s: %w", userID, err)
	}
	b.dms[userID] = ch.ID
	return ch.ID, nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("discord ready", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
}

// onGuildCreate seeds the lounge with users already connected at startup.
func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if b.tracker == nil || g.Guild == nil {
		return
	}
	var inLounge []string
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == b.tracker.Lounge() {
			inLounge = append(inLounge, vs.UserID)
		}
	}
	b.tracker.Seed(inLounge...)
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(b.context(), m.Message)
}

func (b *Bot) onVoiceStateUpdate(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	b.handleVoice(b.context(), v.VoiceState)
}

func (b *Bot) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	name, ok := commands.Parse(m.Content, Prefix)
	if !ok {
		return
	}

	var reply string
	if name == "help" {
		reply = commands.Help(Prefix)
	} else if reply, ok = b.handler.Handle(ctx, name); !ok {
		return
	}

	b.log.Info("command", zap.String("command", name), zap.String("user", m.Author.ID), zap.String("channel", m.ChannelID))
	if err := b.SendChannel(ctx, m.ChannelID, reply); err != nil {
		b.log.Error("command reply failed", zap.String("command", name), zap.Error(err))
	}
}

func (b *Bot) handleVoice(ctx context.Context, v *discordgo.VoiceState) {
	if b.tracker == nil || v == nil {
		return
	}
	if v.Member != nil && v.Member.User != nil && v.Member.User.Bot {
		return
	}
	ev, ok := b.tracker.Update(v.UserID, v.ChannelID)
	if !ok {
		return
	}

	err := b.SendChannel(ctx, b.presenceChannel, ev.Message(b.Style()))
	if b.obs != nil {
		b.obs.ObserveSend("presence", err)
	}
	if err != nil {
		b.log.Error("presence notice failed", zap.Stringer("event", ev.Kind), zap.Error(err))
		return
	}
	b.log.Info("presence notice sent",
		zap.Stringer("event", ev.Kind),
		zap.String("user", v.UserID),
		zap.Int("occupants", b.tracker.Occupants()),
	)
}
