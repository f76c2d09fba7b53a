package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/todo-relay/internal/digest"
)

// Trigger names.
const (
	TriggerDailySummary   = "daily-summary"
	TriggerTomorrowDigest = "tomorrow-digest"
	TriggerBacklogDigest  = "backlog-digest"
	TriggerReminders      = "reminders"
)

// Default trigger expressions, evaluated in the configured timezone.
const (
	SpecDailySummary   = "0 8,12,16,20 * * *"
	SpecTomorrowDigest = "30 22 * * *"
	SpecBacklogDigest  = "0 6 * * *"
	SpecReminders      = "* * * * *"
)

// Digests is what the jobs need from the digest builder.
type Digests interface {
	Today(ctx context.Context, now time.Time) (string, error)
	Tomorrow(ctx context.Context, now time.Time) (string, error)
	Backlog(ctx context.Context, now time.Time) (string, error)
	Reminders(ctx context.Context, now time.Time) ([]digest.Reminder, error)
	Style() digest.Style
}

// Jobs binds the trigger actions to their collaborators.
type Jobs struct {
	Digests        Digests
	Sender         Sender
	Ledger         *digest.Ledger
	TasksChannelID string
	Observer       Observer
	Log            *zap.Logger
}

// Triggers builds the fixed trigger table pinned to loc.
func (j *Jobs) Triggers(loc *time.Location) ([]Trigger, error) {
	if j.Observer == nil {
		j.Observer = nopObserver{}
	}
	table := []struct {
		name string
		spec string
		run  Action
	}{
		{TriggerDailySummary, SpecDailySummary, j.broadcast("summary", j.Digests.Today)},
		{TriggerTomorrowDigest, SpecTomorrowDigest, j.broadcast("tomorrow", j.Digests.Tomorrow)},
		{TriggerBacklogDigest, SpecBacklogDigest, j.broadcast("backlog", j.Digests.Backlog)},
		{TriggerReminders, SpecReminders, j.remind},
	}

	triggers := make([]Trigger, 0, len(table))
	for _, row := range table {
		t, err := NewTrigger(row.name, row.spec, loc, row.run)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, nil
}

// broadcast renders a digest and posts it to the tasks channel.
// Empty digests are not posted.
func (j *Jobs) broadcast(kind string, render func(context.Context, time.Time) (string, error)) Action {
	return func(ctx context.Context, now time.Time) error {
		text, err := render(ctx, now)
		if err != nil {
			return fmt.Errorf("render %s: %w", kind, err)
		}
		if text == "" {
			j.Log.Debug("digest empty, nothing to post", zap.String("kind", kind))
			return nil
		}
		err = j.Sender.SendChannel(ctx, j.TasksChannelID, text)
		j.Observer.ObserveSend(kind, err)
		if err != nil {
			return fmt.Errorf("send %s: %w", kind, err)
		}
		return nil
	}
}

// remind sends a direct message for every reminder due this minute that
// has not been sent before.
func (j *Jobs) remind(ctx context.Context, now time.Time) error {
	if j.Ledger != nil {
		if n := j.Ledger.Prune(now); n > 0 {
			j.Log.Debug("reminder ledger pruned", zap.Int("dropped", n), zap.Int("remaining", j.Ledger.Len()))
		}
	}
	reminders, err := j.Digests.Reminders(ctx, now)
	if err != nil {
		return fmt.Errorf("evaluate reminders: %w", err)
	}

	style := j.Digests.Style()
	var errs []error
	for _, r := range reminders {
		if j.Ledger != nil && !j.Ledger.Claim(r) {
			j.Log.Debug("reminder already sent",
				zap.String("chat_user", r.User.ChatID),
				zap.String("item", r.ItemKey),
				zap.Int("lead", r.Lead),
			)
			continue
		}
		err := j.Sender.SendDirect(ctx, r.User.ChatID, r.Message(style))
		j.Observer.ObserveSend("reminder", err)
		if err != nil {
			j.Log.Error("send reminder failed",
				zap.String("chat_user", r.User.ChatID),
				zap.Int("lead", r.Lead),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		j.Log.Info("reminder sent", zap.String("chat_user", r.User.ChatID), zap.String("label", r.Label()))
	}
	return errors.Join(errs...)
}
