package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Action is the work a trigger performs for the minute it matched.
type Action func(ctx context.Context, now time.Time) error

// Trigger pairs a cron predicate with an action.
type Trigger struct {
	Name  string
	Spec  string
	sched cron.Schedule
	Run   Action
}

// NewTrigger parses spec (standard five-field cron) pinned to loc.
func NewTrigger(name, spec string, loc *time.Location, run Action) (Trigger, error) {
	sched, err := cron.ParseStandard("CRON_TZ=" + loc.String() + " " + spec)
	if err != nil {
		return Trigger{}, fmt.Errorf("trigger %s: parse %q: %w", name, spec, err)
	}
	return Trigger{Name: name, Spec: spec, sched: sched, Run: run}, nil
}

// Matches reports whether the trigger fires in the calendar minute of now.
// Only an exact minute match counts; seconds are ignored.
func (t Trigger) Matches(now time.Time) bool {
	minute := now.Truncate(time.Minute)
	return t.sched.Next(minute.Add(-time.Second)).Equal(minute)
}
