package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Sender is a minimal interface the scheduler needs to deliver text.
// Chat platform adapters implement it.
type Sender interface {
	SendChannel(ctx context.Context, channelID, text string) error
	SendDirect(ctx context.Context, userID, text string) error
}

// Observer receives scheduler activity; metrics.Metrics implements it.
type Observer interface {
	ObserveTick(d time.Duration)
	ObserveTrigger(name string, err error)
	ObserveSend(kind string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveTick(time.Duration) {}
func (nopObserver) ObserveTrigger(string, error) {}
func (nopObserver) ObserveSend(string, error) {}

// maxLag is how far behind the loop may fall before it skips ahead to the
// current minute instead of replaying every missed one.
const maxLag = 5 * time.Minute

// Scheduler evaluates a fixed trigger table once per wall-clock minute.
type Scheduler struct {
	triggers []Trigger
	loc      *time.Location
	log      *zap.Logger
	obs      Observer

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New creates a Scheduler over triggers. All times are evaluated in loc.
func New(loc *time.Location, log *zap.Logger, obs Observer, triggers ...Trigger) *Scheduler {
	if obs == nil {
		obs = nopObserver{}
	}
	return &Scheduler{
		triggers: triggers,
		loc:      loc,
		log:      log,
		obs:      obs,
		now:      time.Now,
		after:    time.After,
	}
}

// Due returns the triggers that match the calendar minute of now.
func (s *Scheduler) Due(now time.Time) []Trigger {
	now = now.In(s.loc)
	var due []Trigger
	for _, t := range s.triggers {
		if t.Matches(now) {
			due = append(due, t)
		}
	}
	return due
}

// Run ticks on every minute boundary until ctx is canceled. The first tick
// is the next full minute after start. A tick that overruns delays the next
// one; it is never run concurrently.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", zap.Int("triggers", len(s.triggers)), zap.String("tz", s.loc.String()))
	next := s.now().In(s.loc).Truncate(time.Minute).Add(time.Minute)

	for {
		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-s.after(wait):
		}

		s.Tick(ctx, next)

		next = next.Add(time.Minute)
		if lag := s.now().Sub(next); lag > maxLag {
			current := s.now().In(s.loc).Truncate(time.Minute)
			s.log.Warn("scheduler fell behind, skipping minutes",
				zap.Duration("lag", lag),
				zap.Time("from", next),
				zap.Time("to", current),
			)
			next = current
		}
	}
}

// Tick runs every trigger due at now, one after another. A failing or
// panicking trigger is logged and never stops the rest.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	start := time.Now()
	now = now.In(s.loc).Truncate(time.Minute)

	for _, t := range s.Due(now) {
		if ctx.Err() != nil {
			return
		}
		err := s.runTrigger(ctx, t, now)
		s.obs.ObserveTrigger(t.Name, err)
		if err != nil {
			s.log.Error("trigger failed", zap.String("trigger", t.Name), zap.Time("at", now), zap.Error(err))
			continue
		}
		s.log.Debug("trigger done", zap.String("trigger", t.Name), zap.Time("at", now))
	}
	s.obs.ObserveTick(time.Since(start))
}

func (s *Scheduler) runTrigger(ctx context.Context, t Trigger, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Run(ctx, now)
}
