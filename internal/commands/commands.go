// Package commands implements the on-demand digest commands shared by every
// chat transport.
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Command names.
const (
	Today    = "today"
	Tomorrow = "tomorrow"
	Week     = "week"
	Backlog  = "backlog"
)

// Digests is what the commands need from the digest builder.
type Digests interface {
	Today(ctx context.Context, now time.Time) (string, error)
	Tomorrow(ctx context.Context, now time.Time) (string, error)
	Week(ctx context.Context, now time.Time) (string, error)
	Backlog(ctx context.Context, now time.Time) (string, error)
}

// Command describes one on-demand command.
type Command struct {
	Name        string
	Description string
	Empty       string // reply when the digest has no content
	Failure     string // reply when building the digest failed
}

var table = []Command{
	{
		Name:        Today,
		Description: "Show today's todos",
		Empty:       "✅ No todos scheduled for today.",
		Failure:     "❌ An error occurred while fetching today's todos.",
	},
	{
		Name:        Tomorrow,
		Description: "Show tomorrow's todos",
		Empty:       "✅ No todos scheduled for tomorrow.",
		Failure:     "❌ An error occurred while fetching tomorrow's todos.",
	},
	{
		Name:        Week,
		Description: "Show todos for the next 7 days",
		Empty:       "✅ No upcoming todos.",
		Failure:     "❌ An error occurred while fetching this week's todos.",
	},
	{
		Name:        Backlog,
		Description: "Show unfinished todos from the past 7 days",
		Empty:       "✅ No backlog items.",
		Failure:     "❌ An error occurred while fetching the backlog.",
	},
}

// All returns the command table in display order.
func All() []Command {
	out := make([]Command, len(table))
	copy(out, table)
	return out
}

// Lookup finds a command by name, case-insensitively.
func Lookup(name string) (Command, bool) {
	name = strings.ToLower(name)
	for _, c := range table {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// Parse extracts a command name from a chat message that starts with
// prefix. A Telegram style "@botname" suffix is dropped.
func Parse(text, prefix string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return "", false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name), name != ""
}

// Observer is told about every handled command.
type Observer interface {
	ObserveCommand(name string, err error)
}

// Handler answers commands with rendered digests.
type Handler struct {
	digests Digests
	log     *zap.Logger
	obs     Observer
	now     func() time.Time
}

// NewHandler creates a Handler. obs may be nil.
func NewHandler(d Digests, log *zap.Logger, obs Observer) *Handler {
	return &Handler{digests: d, log: log, obs: obs, now: time.Now}
}

// Handle runs the named command and returns the reply text. ok is false
// for unknown commands. Failures never escape: they are logged and turned
// into the command's generic failure reply.
func (h *Handler) Handle(ctx context.Context, name string) (reply string, ok bool) {
	cmd, ok := Lookup(name)
	if !ok {
		return "", false
	}

	text, err := h.render(ctx, cmd.Name)
	if h.obs != nil {
		h.obs.ObserveCommand(cmd.Name, err)
	}
	if err != nil {
		h.log.Error("command failed", zap.String("command", cmd.Name), zap.Error(err))
		return cmd.Failure, true
	}
	if text == "" {
		return cmd.Empty, true
	}
	return text, true
}

func (h *Handler) render(ctx context.Context, name string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	now := h.now()
	switch name {
	case Today:
		return h.digests.Today(ctx, now)
	case Tomorrow:
		return h.digests.Tomorrow(ctx, now)
	case Week:
		return h.digests.Week(ctx, now)
	case Backlog:
		return h.digests.Backlog(ctx, now)
	}
	return "", fmt.Errorf("no renderer for %q", name)
}

// Help lists the commands with the given prefix, one per line.
func Help(prefix string) string {
	var b strings.Builder
	b.WriteString("📋 Commands:\n")
	for _, c := range table {
		b.WriteString(prefix + c.Name + " - " + c.Description + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
