package digest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ykvlv/todo-relay/internal/domain"
)

var manila = mustLoc("Asia/Manila")

func mustLoc(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, manila)
}

func ptr(t time.Time) *time.Time { return &t }

type stubFetcher struct {
	mu      sync.Mutex
	items   map[string][]domain.Item
	errs    map[string]error
	windows []domain.Window
}

func (s *stubFetcher) FetchItems(_ context.Context, pid string, w domain.Window) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, w)
	if err := s.errs[pid]; err != nil {
		return nil, err
	}
	return s.items[pid], nil
}

type countingObserver struct{ ok, failed int }

func (c *countingObserver) ObserveFetch(_ string, err error) {
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

func twoUsers() domain.Directory {
	return domain.NewDirectory([]domain.User{
		{ChatID: "111", ProviderID: "alice"},
		{ChatID: "222", ProviderID: "bob"},
		{ChatID: "333"}, // not enrolled
	})
}

func newTestBuilder(f Fetcher, opts ...Option) *Builder {
	return NewBuilder(twoUsers(), f, manila, DiscordStyle{}, zap.NewNop(), opts...)
}

func TestEvaluateReminders_ExactLeadsOnly(t *testing.T) {
	now := at(2024, time.January, 1, 8, 0)
	var items []domain.Item
	for _, k := range []int{5, 10, 30, 60, 120, 7, 121, 0, -5} {
		items = append(items, domain.Item{
			ID:       "k" + strconv.Itoa(k),
			Content:  "item",
			RemindAt: ptr(now.Add(time.Duration(k) * time.Minute)),
		})
	}
	// 119.9 minutes away floors to 119
	items = append(items, domain.Item{ID: "frac", RemindAt: ptr(now.Add(119*time.Minute + 54*time.Second))})
	items = append(items, domain.Item{ID: "none"})

	b := newTestBuilder(&stubFetcher{})
	got := b.EvaluateReminders(Batch{"alice": {Items: items}}, now)

	var leads []int
	for _, r := range got {
		leads = append(leads, r.Lead)
		assert.Equal(t, "111", r.User.ChatID)
	}
	assert.Equal(t, []int{5, 10, 30, 60, 120}, leads)
}

func TestEvaluateReminders_Scenarios(t *testing.T) {
	now := at(2024, time.January, 1, 8, 0)
	b := newTestBuilder(&stubFetcher{})

	got := b.EvaluateReminders(Batch{"alice": {Items: []domain.Item{
		{Content: "Standup", RemindAt: ptr(at(2024, time.January, 1, 10, 0))},
	}}}, now)
	require.Len(t, got, 1)
	assert.Equal(t, "2 hours", got[0].Label())
	assert.Equal(t, "⏰ Reminder: **Standup** in 2 hours!", got[0].Message(DiscordStyle{}))

	got = b.EvaluateReminders(Batch{"bob": {Items: []domain.Item{
		{Content: "Tea", RemindAt: ptr(at(2024, time.January, 1, 8, 10))},
	}}}, now)
	require.Len(t, got, 1)
	assert.Equal(t, "10 minutes", got[0].Label())
	assert.Equal(t, "222", got[0].User.ChatID)
}

func TestEvaluateReminders_SkipsFailedAndUnmapped(t *testing.T) {
	now := at(2024, time.January, 1, 8, 0)
	b := newTestBuilder(&stubFetcher{})
	item := domain.Item{Content: "x", RemindAt: ptr(now.Add(30 * time.Minute))}

	got := b.EvaluateReminders(Batch{
		"alice":    {Err: errors.New("down")},
		"stranger": {Items: []domain.Item{item}},
	}, now)
	assert.Empty(t, got)
}

func TestLeadLabel(t *testing.T) {
	assert.Equal(t, "1 hour", LeadLabel(60))
	assert.Equal(t, "2 hours", LeadLabel(120))
	assert.Equal(t, "30 minutes", LeadLabel(30))
	assert.Equal(t, "5 minutes", LeadLabel(5))
}

func TestRenderDaily_EmptyIsEmpty(t *testing.T) {
	b := newTestBuilder(&stubFetcher{})
	assert.Equal(t, "", b.RenderDaily(Batch{}, HeadingToday))
	assert.Equal(t, "", b.RenderDaily(Batch{"alice": {}, "bob": {Items: []domain.Item{}}}, HeadingToday))
}

func TestToday_OnlyUsersWithItems(t *testing.T) {
	now := at(2024, time.January, 1, 8, 0)
	f := &stubFetcher{items: map[string][]domain.Item{
		"alice": {
			{Content: "Gym", RemindAt: ptr(at(2024, time.January, 1, 17, 30))},
			{Content: "Read"},
		},
	}}
	obs := &countingObserver{}
	b := newTestBuilder(f, WithObserver(obs))

	out, err := b.Today(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, "📌 Todos for <@111>:\n• **Gym** at 5:30 PM\n• **Read**", out)
	assert.NotContains(t, out, "<@222>")
	assert.Equal(t, 2, obs.ok)

	require.Len(t, f.windows, 2)
	assert.Equal(t, domain.DayWindow(now), f.windows[0])
}

func TestToday_OneFailureDoesNotBlockOthers(t *testing.T) {
	f := &stubFetcher{
		items: map[string][]domain.Item{"bob": {{Content: "Laundry"}}},
		errs:  map[string]error{"alice": errors.New("401 unauthorized")},
	}
	obs := &countingObserver{}
	b := newTestBuilder(f, WithObserver(obs))

	out, err := b.Today(context.Background(), at(2024, time.January, 1, 12, 0))
	require.NoError(t, err)

	assert.Contains(t, out, "<@111> ⚠️ Error: 401 unauthorized")
	assert.Contains(t, out, "📌 Todos for <@222>:\n• **Laundry**")
	assert.Equal(t, 1, obs.failed)
	assert.Equal(t, 1, obs.ok)
}

func TestTomorrow_UsesNextDayWindow(t *testing.T) {
	f := &stubFetcher{items: map[string][]domain.Item{"bob": {{Content: "Dentist"}}}}
	b := newTestBuilder(f)
	now := at(2024, time.January, 31, 22, 30)

	out, err := b.Tomorrow(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "📌 Tomorrow's todos for <@222>:\n• **Dentist**", out)
	assert.Equal(t, domain.DayWindow(at(2024, time.February, 1, 0, 0)), f.windows[0])
}

func TestRenderWeek_DateOrderAndGrouping(t *testing.T) {
	b := newTestBuilder(&stubFetcher{})
	batch := Batch{
		"alice": {Items: []domain.Item{
			{Content: "Later", Due: ptr(at(2024, time.January, 3, 0, 0))},
			{Content: "First", Due: ptr(at(2024, time.January, 1, 0, 0)), RemindAt: ptr(at(2024, time.January, 1, 9, 0))},
			{Content: "Someday"},
		}},
		"bob": {Items: []domain.Item{
			{Content: "Shared day", Due: ptr(at(2024, time.January, 3, 0, 0))},
		}},
	}

	out := b.RenderWeek(batch)

	jan1 := strings.Index(out, "📅 **Jan 01 2024 (Monday)**")
	jan3 := strings.Index(out, "📅 **Jan 03 2024 (Wednesday)**")
	unknown := strings.Index(out, "📅 **Unknown Date**")
	require.True(t, jan1 >= 0 && jan3 >= 0 && unknown >= 0, out)
	assert.Less(t, jan1, jan3)
	assert.Less(t, jan3, unknown)

	assert.Equal(t, 1, strings.Count(out, "Jan 03 2024"), "one header per date")
	jan3Block := out[jan3:unknown]
	assert.Contains(t, jan3Block, "<@111>:\n• **Later**")
	assert.Contains(t, jan3Block, "<@222>:\n• **Shared day**")
	assert.Contains(t, out, "• **First** at 9:00 AM")
}

func TestRenderWeek_ErrorsBucket(t *testing.T) {
	b := newTestBuilder(&stubFetcher{})
	out := b.RenderWeek(Batch{
		"alice": {Err: errors.New("timeout")},
		"bob":   {Items: []domain.Item{{Content: "A", Due: ptr(at(2024, time.May, 2, 0, 0))}}},
	})
	assert.Less(t, strings.Index(out, "May 02 2024"), strings.Index(out, "📅 **Errors**"))
	assert.Contains(t, out, "📅 **Errors**\n<@111>:\n⚠️ Error: timeout")
	assert.Equal(t, "", b.RenderWeek(Batch{}))
}

func TestBacklog_RendersOriginalDate(t *testing.T) {
	f := &stubFetcher{items: map[string][]domain.Item{
		"alice": {
			{Content: "Taxes", Due: ptr(at(2024, time.February, 27, 0, 0))},
			{Content: "Mystery"},
		},
	}}
	b := newTestBuilder(f)
	now := at(2024, time.March, 1, 6, 0)

	out, err := b.Backlog(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "🕗 Backlog for <@111>:\n• **Taxes** (from Feb 27)\n• **Mystery** (from Unknown date)", out)
	assert.Equal(t, domain.BacklogWindow(now), f.windows[0])
}

func TestUnmappedProviderContributesNothing(t *testing.T) {
	b := newTestBuilder(&stubFetcher{})
	batch := Batch{"ghost": {Items: []domain.Item{{Content: "Boo", Due: ptr(at(2024, time.January, 1, 0, 0))}}}}
	assert.Equal(t, "", b.RenderDaily(batch, HeadingToday))
	assert.Equal(t, "", b.RenderWeek(batch))
	assert.Equal(t, "", b.RenderBacklog(batch))
}

func TestCollect_CancelledContext(t *testing.T) {
	b := newTestBuilder(&stubFetcher{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Today(ctx, at(2024, time.January, 1, 8, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReminders_FetchesAcrossMidnight(t *testing.T) {
	now := at(2024, time.January, 1, 22, 30)
	f := &stubFetcher{items: map[string][]domain.Item{
		"alice": {{ID: "late", Content: "Night pill", RemindAt: ptr(at(2024, time.January, 2, 0, 30))}},
	}}
	b := newTestBuilder(f)

	got, err := b.Reminders(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2 hours", got[0].Label())
	assert.Equal(t, 2, f.windows[0].End.Day())
}

func TestHTMLStyle_Escapes(t *testing.T) {
	b := NewBuilder(twoUsers(), &stubFetcher{}, manila, HTMLStyle{}, zap.NewNop())
	out := b.RenderDaily(Batch{"alice": {Items: []domain.Item{{Content: "a<b & c"}}}}, HeadingToday)
	assert.Equal(t, `📌 Todos for <a href="tg://user?id=111">111</a>:`+"\n• <b>a&lt;b &amp; c</b>", out)
}
