package digest

import (
	"sort"
	"strings"

	"github.com/ykvlv/todo-relay/internal/domain"
)

// Headings for daily blocks.
const (
	HeadingToday    = "📌 Todos for"
	HeadingTomorrow = "📌 Tomorrow's todos for"
)

const (
	errorsBucket  = "Errors"
	unknownBucket = "Unknown Date"
)

// RenderDaily renders one block per user with items, one line per item.
// A failed user gets a single inline error line. No items at all yields "".
func (b *Builder) RenderDaily(batch Batch, heading string) string {
	var sb strings.Builder
	for _, e := range b.entries(batch) {
		mention := b.style.Mention(e.user.ChatID)
		if e.Err != nil {
			sb.WriteString(b.errorLine(mention, e.Err))
			continue
		}
		if len(e.Items) == 0 {
			continue
		}
		sb.WriteString("\n" + heading + " " + mention + ":\n")
		for _, it := range e.Items {
			sb.WriteString(b.itemLine(it) + "\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

type dateBucket struct {
	users []string
	lines map[string][]string
}

func (d *dateBucket) add(chatID, line string) {
	if _, ok := d.lines[chatID]; !ok {
		d.users = append(d.users, chatID)
	}
	d.lines[chatID] = append(d.lines[chatID], line)
}

// RenderWeek groups items by calendar date, then by user. Dates sort
// ascending; the "Errors" and "Unknown Date" buckets sort after them.
func (b *Builder) RenderWeek(batch Batch) string {
	buckets := make(map[string]*dateBucket)
	bucket := func(key string) *dateBucket {
		db, ok := buckets[key]
		if !ok {
			db = &dateBucket{lines: make(map[string][]string)}
			buckets[key] = db
		}
		return db
	}

	for _, e := range b.entries(batch) {
		if e.Err != nil {
			bucket(errorsBucket).add(e.user.ChatID, "⚠️ Error: "+b.style.Text(e.Err.Error()))
			continue
		}
		for _, it := range e.Items {
			key := unknownBucket
			if it.Due != nil {
				key = domain.DateKey(it.Due.In(b.loc))
			}
			bucket(key).add(e.user.ChatID, b.itemLine(it))
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString("📅 " + b.style.Bold(domain.FormatDateHeading(k)) + "\n")
		db := buckets[k]
		for _, chatID := range db.users {
			sb.WriteString(b.style.Mention(chatID) + ":\n")
			for _, line := range db.lines[chatID] {
				sb.WriteString(line + "\n")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// RenderBacklog renders one block per user, each line tagged with the
// item's original month and day.
func (b *Builder) RenderBacklog(batch Batch) string {
	var sb strings.Builder
	for _, e := range b.entries(batch) {
		mention := b.style.Mention(e.user.ChatID)
		if e.Err != nil {
			sb.WriteString(b.errorLine(mention, e.Err))
			continue
		}
		if len(e.Items) == 0 {
			continue
		}
		sb.WriteString("\n🕗 Backlog for " + mention + ":\n")
		for _, it := range e.Items {
			from := "Unknown date"
			if it.Due != nil {
				from = domain.FormatShortDate(it.Due.In(b.loc))
			}
			sb.WriteString("• " + b.style.Bold(it.DisplayContent()) + " (from " + from + ")\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func (b *Builder) itemLine(it domain.Item) string {
	line := "• " + b.style.Bold(it.DisplayContent())
	if it.RemindAt != nil {
		line += " at " + domain.FormatClock(it.RemindAt.In(b.loc))
	}
	return line
}

func (b *Builder) errorLine(mention string, err error) string {
	return mention + " ⚠️ Error: " + b.style.Text(err.Error()) + "\n"
}
