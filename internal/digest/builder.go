// Package digest fetches pending to-do items per user and renders them into
// chat-ready text blocks. It also decides which items are due a reminder.
package digest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/todo-relay/internal/domain"
)

// Fetcher returns pending items of one provider user inside a window.
type Fetcher interface {
	FetchItems(ctx context.Context, providerUserID string, w domain.Window) ([]domain.Item, error)
}

// FetchObserver is told about every provider call.
type FetchObserver interface {
	ObserveFetch(providerUserID string, err error)
}

// Result is the outcome of one user's fetch. Err and Items are exclusive.
type Result struct {
	Items []domain.Item
	Err   error
}

// Batch holds fetch results keyed by provider user id.
type Batch map[string]Result

// entry is a batch result resolved to its configured user.
type entry struct {
	user domain.User
	Result
}

// Builder collects and renders digests for a fixed user directory.
type Builder struct {
	dir     domain.Directory
	fetcher Fetcher
	loc     *time.Location
	style   Style
	log     *zap.Logger
	timeout time.Duration
	obs     FetchObserver
}

// Option customizes a Builder.
type Option func(*Builder)

// WithFetchTimeout bounds every single provider call.
func WithFetchTimeout(d time.Duration) Option {
	return func(b *Builder) { b.timeout = d }
}

// WithObserver reports every fetch to o.
func WithObserver(o FetchObserver) Option {
	return func(b *Builder) { b.obs = o }
}

// NewBuilder creates a Builder. All time computations use loc.
func NewBuilder(dir domain.Directory, fetcher Fetcher, loc *time.Location, style Style, log *zap.Logger, opts ...Option) *Builder {
	b := &Builder{
		dir:     dir,
		fetcher: fetcher,
		loc:     loc,
		style:   style,
		log:     log,
		timeout: 15 * time.Second,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Style returns the markup style the builder renders with.
func (b *Builder) Style() Style { return b.style }

// Collect fetches every enrolled user once, sequentially. A failing user
// is recorded in its own Result and never stops the others.
func (b *Builder) Collect(ctx context.Context, w domain.Window) Batch {
	batch := make(Batch)
	for _, u := range b.dir.Enrolled() {
		if ctx.Err() != nil {
			batch[u.ProviderID] = Result{Err: ctx.Err()}
			continue
		}
		items, err := b.fetchOne(ctx, u.ProviderID, w)
		if b.obs != nil {
			b.obs.ObserveFetch(u.ProviderID, err)
		}
		if err != nil {
			b.log.Error("fetch todos failed",
				zap.String("chat_user", u.ChatID),
				zap.String("provider_user", u.ProviderID),
				zap.Error(err),
			)
			batch[u.ProviderID] = Result{Err: err}
			continue
		}
		batch[u.ProviderID] = Result{Items: items}
	}
	return batch
}

func (b *Builder) fetchOne(ctx context.Context, providerID string, w domain.Window) ([]domain.Item, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return b.fetcher.FetchItems(ctx, providerID, w)
}

// entries resolves batch keys to configured users in directory order.
// Results for provider ids missing from the directory are dropped.
func (b *Builder) entries(batch Batch) []entry {
	out := make([]entry, 0, len(batch))
	for _, u := range b.dir.Enrolled() {
		if r, ok := batch[u.ProviderID]; ok {
			out = append(out, entry{user: u, Result: r})
		}
	}
	if len(out) < len(batch) {
		for pid := range batch {
			if _, ok := b.dir.ByProvider(pid); !ok {
				b.log.Debug("skip unmapped provider user", zap.String("provider_user", pid))
			}
		}
	}
	return out
}

// Today fetches and renders the daily digest for the day containing now.
func (b *Builder) Today(ctx context.Context, now time.Time) (string, error) {
	batch := b.Collect(ctx, domain.DayWindow(now.In(b.loc)))
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.RenderDaily(batch, HeadingToday), nil
}

// Tomorrow fetches and renders the daily digest for the next calendar day.
func (b *Builder) Tomorrow(ctx context.Context, now time.Time) (string, error) {
	batch := b.Collect(ctx, domain.DayWindow(domain.Tomorrow(now.In(b.loc))))
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.RenderDaily(batch, HeadingTomorrow), nil
}

// Week fetches and renders the seven-day digest starting today.
func (b *Builder) Week(ctx context.Context, now time.Time) (string, error) {
	batch := b.Collect(ctx, domain.WeekWindow(now.In(b.loc)))
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.RenderWeek(batch), nil
}

// Backlog fetches and renders unfinished items from the previous seven days.
func (b *Builder) Backlog(ctx context.Context, now time.Time) (string, error) {
	batch := b.Collect(ctx, domain.BacklogWindow(now.In(b.loc)))
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.RenderBacklog(batch), nil
}

// Reminders fetches the reminder window around now and evaluates it.
func (b *Builder) Reminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	now = now.In(b.loc)
	batch := b.Collect(ctx, domain.ReminderWindow(now, MaxLead))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.EvaluateReminders(batch, now), nil
}
