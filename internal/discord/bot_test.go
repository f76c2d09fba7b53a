package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ykvlv/todo-relay/internal/commands"
	"github.com/ykvlv/todo-relay/internal/presence"
)

type fakeAPI struct {
	sent     map[string][]string
	dmOpens  int
	failSend error
}

func (f *fakeAPI) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.failSend != nil {
		return nil, f.failSend
	}
	if f.sent == nil {
		f.sent = map[string][]string{}
	}
	f.sent[channelID] = append(f.sent[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeAPI) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.dmOpens++
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

type fixedDigests struct{ today string }

func (d fixedDigests) Today(context.Context, time.Time) (string, error) { return d.today, nil }
func (fixedDigests) Tomorrow(context.Context, time.Time) (string, error) {
	return "", errors.New("boom")
}
func (fixedDigests) Week(context.Context, time.Time) (string, error)    { return "", nil }
func (fixedDigests) Backlog(context.Context, time.Time) (string, error) { return "", nil }

type sendCounter map[string]int

func (c sendCounter) ObserveSend(kind string, _ error) { c[kind]++ }

func newTestBot(api *fakeAPI, opts Options) *Bot {
	h := commands.NewHandler(fixedDigests{today: "📌 Todos for <@1>:"}, zap.NewNop(), nil)
	return newBot(api, h, zap.NewNop(), opts)
}

func msg(author, content string, bot bool) *discordgo.Message {
	return &discordgo.Message{
		ChannelID: "chan",
		Content:   content,
		Author:    &discordgo.User{ID: author, Bot: bot},
	}
}

func TestHandleMessage_Commands(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api, Options{})
	ctx := context.Background()

	b.handleMessage(ctx, msg("1", "!today", false))
	b.handleMessage(ctx, msg("1", "!week", false))
	b.handleMessage(ctx, msg("1", "!tomorrow", false))
	b.handleMessage(ctx, msg("1", "!dance", false))
	b.handleMessage(ctx, msg("1", "today", false))
	b.handleMessage(ctx, msg("2", "!today", true))

	assert.Equal(t, []string{
		"📌 Todos for <@1>:",
		"✅ No upcoming todos.",
		"❌ An error occurred while fetching tomorrow's todos.",
	}, api.sent["chan"])
}

func TestHandleMessage_Help(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api, Options{})

	b.handleMessage(context.Background(), msg("1", "!help", false))
	require.Len(t, api.sent["chan"], 1)
	assert.True(t, strings.Contains(api.sent["chan"][0], "!backlog"))
}

func TestSendDirect_ReusesDMChannel(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api, Options{})
	ctx := context.Background()

	require.NoError(t, b.SendDirect(ctx, "42", "one"))
	require.NoError(t, b.SendDirect(ctx, "42", "two"))
	assert.Equal(t, 1, api.dmOpens)
	assert.Equal(t, []string{"one", "two"}, api.sent["dm-42"])
}

func TestSendChannel_SplitsLongText(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api, Options{})
	line := strings.Repeat("x", 1500)

	require.NoError(t, b.SendChannel(context.Background(), "c", line+"\n"+line))
	assert.Len(t, api.sent["c"], 2)
}

func TestSendChannel_Error(t *testing.T) {
	api := &fakeAPI{failSend: errors.New("403")}
	b := newTestBot(api, Options{})
	err := b.SendChannel(context.Background(), "c", "hi")
	assert.ErrorContains(t, err, "403")
}

func TestHandleVoice_AnnouncesLounge(t *testing.T) {
	api := &fakeAPI{}
	counter := sendCounter{}
	b := newTestBot(api, Options{
		Tracker:           presence.NewTracker("lounge", []string{"1", "2"}),
		PresenceChannelID: "general",
		Observer:          counter,
	})
	ctx := context.Background()

	b.handleVoice(ctx, &discordgo.VoiceState{UserID: "1", ChannelID: "lounge"})
	b.handleVoice(ctx, &discordgo.VoiceState{UserID: "2", ChannelID: "lounge"})
	b.handleVoice(ctx, &discordgo.VoiceState{
		UserID: "3", ChannelID: "lounge",
		Member: &discordgo.Member{User: &discordgo.User{ID: "3", Bot: true}},
	})
	b.handleVoice(ctx, &discordgo.VoiceState{UserID: "1", ChannelID: ""})
	b.handleVoice(ctx, &discordgo.VoiceState{UserID: "2", ChannelID: ""})

	assert.Equal(t, []string{
		"🎧 <@1> is in the lounge — come hang out!",
		"🔇 The lounge is empty now.",
	}, api.sent["general"])
	assert.Equal(t, 2, counter["presence"])
}

func TestHandleVoice_NoTracker(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api, Options{})
	b.handleVoice(context.Background(), &discordgo.VoiceState{UserID: "1", ChannelID: "lounge"})
	assert.Empty(t, api.sent)
}
