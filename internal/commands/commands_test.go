package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDigests struct {
	text  map[string]string
	err   map[string]error
	panic string
	seen  []time.Time
}

func (s *stubDigests) get(name string, now time.Time) (string, error) {
	s.seen = append(s.seen, now)
	if s.panic == name {
		panic("renderer exploded")
	}
	return s.text[name], s.err[name]
}

func (s *stubDigests) Today(_ context.Context, now time.Time) (string, error) {
	return s.get(Today, now)
}

func (s *stubDigests) Tomorrow(_ context.Context, now time.Time) (string, error) {
	return s.get(Tomorrow, now)
}

func (s *stubDigests) Week(_ context.Context, now time.Time) (string, error) {
	return s.get(Week, now)
}

func (s *stubDigests) Backlog(_ context.Context, now time.Time) (string, error) {
	return s.get(Backlog, now)
}

type recordingObserver struct {
	calls map[string]int
	errs  int
}

func (o *recordingObserver) ObserveCommand(name string, err error) {
	if o.calls == nil {
		o.calls = map[string]int{}
	}
	o.calls[name]++
	if err != nil {
		o.errs++
	}
}

func TestHandle_EmptyReplies(t *testing.T) {
	h := NewHandler(&stubDigests{}, zap.NewNop(), nil)

	cases := map[string]string{
		Today:    "✅ No todos scheduled for today.",
		Tomorrow: "✅ No todos scheduled for tomorrow.",
		Week:     "✅ No upcoming todos.",
		Backlog:  "✅ No backlog items.",
	}
	for name, want := range cases {
		got, ok := h.Handle(context.Background(), name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
}

func TestHandle_ReturnsDigest(t *testing.T) {
	d := &stubDigests{text: map[string]string{Week: "📅 **Jan 01 2024 (Monday)**"}}
	h := NewHandler(d, zap.NewNop(), nil)
	fixed := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	got, ok := h.Handle(context.Background(), "WEEK")
	require.True(t, ok)
	assert.Equal(t, "📅 **Jan 01 2024 (Monday)**", got)
	assert.Equal(t, []time.Time{fixed}, d.seen)
}

func TestHandle_FailuresBecomeGenericReply(t *testing.T) {
	d := &stubDigests{
		err:   map[string]error{Today: errors.New("provider down")},
		panic: Backlog,
	}
	obs := &recordingObserver{}
	h := NewHandler(d, zap.NewNop(), obs)

	got, ok := h.Handle(context.Background(), Today)
	require.True(t, ok)
	assert.Equal(t, "❌ An error occurred while fetching today's todos.", got)

	got, ok = h.Handle(context.Background(), Backlog)
	require.True(t, ok)
	assert.Equal(t, "❌ An error occurred while fetching the backlog.", got)

	assert.Equal(t, 2, obs.errs)
	assert.Equal(t, map[string]int{Today: 1, Backlog: 1}, obs.calls)
}

func TestHandle_Unknown(t *testing.T) {
	h := NewHandler(&stubDigests{}, zap.NewNop(), nil)
	_, ok := h.Handle(context.Background(), "dance")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	cases := []struct {
		text, prefix string
		want         string
		ok           bool
	}{
		{"!today", "!", "today", true},
		{"  !Week please", "!", "week", true},
		{"/backlog@todo_relay_bot", "/", "backlog", true},
		{"/tomorrow", "!", "", false},
		{"hello", "/", "", false},
		{"!", "!", "", false},
		{"/@bot", "/", "", false},
	}
	for _, c := range cases {
		got, ok := Parse(c.text, c.prefix)
		assert.Equal(t, c.ok, ok, c.text)
		assert.Equal(t, c.want, got, c.text)
	}
}

func TestHelp_ListsEveryCommand(t *testing.T) {
	help := Help("!")
	for _, c := range All() {
		assert.Contains(t, help, "!"+c.Name)
	}
}
