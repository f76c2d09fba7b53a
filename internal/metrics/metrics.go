// Package metrics exports relay activity to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "todo_relay"

// Metrics groups the relay collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	triggerRuns  *prometheus.CounterVec
	fetches      *prometheus.CounterVec
	sends        *prometheus.CounterVec
	commands     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
// (the default registerer when nil). Collectors already registered by an
// earlier call are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Scheduler ticks evaluated.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent running all triggers of one tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		triggerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_runs_total",
			Help:      "Trigger executions by outcome.",
		}, []string{"trigger", "result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Provider fetches by outcome.",
		}, []string{"result"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound chat messages by kind and outcome.",
		}, []string{"kind", "result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "On-demand chat commands by outcome.",
		}, []string{"command", "result"}),
	}

	var err error
	if m.ticks, err = register(reg, m.ticks); err != nil {
		return nil, err
	}
	if m.tickDuration, err = register(reg, m.tickDuration); err != nil {
		return nil, err
	}
	if m.triggerRuns, err = register(reg, m.triggerRuns); err != nil {
		return nil, err
	}
	if m.fetches, err = register(reg, m.fetches); err != nil {
		return nil, err
	}
	if m.sends, err = register(reg, m.sends); err != nil {
		return nil, err
	}
	if m.commands, err = register(reg, m.commands); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveTick records one tick and how long it ran.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// ObserveTrigger records one trigger run.
func (m *Metrics) ObserveTrigger(name string, err error) {
	if m == nil {
		return
	}
	m.triggerRuns.WithLabelValues(name, outcome(err)).Inc()
}

// ObserveFetch records one provider call.
func (m *Metrics) ObserveFetch(_ string, err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome(err)).Inc()
}

// ObserveSend records one outbound message.
func (m *Metrics) ObserveSend(kind string, err error) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(kind, outcome(err)).Inc()
}

// ObserveCommand records one on-demand command.
func (m *Metrics) ObserveCommand(name string, err error) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name, outcome(err)).Inc()
}
