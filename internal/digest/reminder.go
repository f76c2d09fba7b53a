package digest

import (
	"math"
	"strconv"
	"time"

	"github.com/ykvlv/todo-relay/internal/domain"
)

// Leads are the minutes before an item's reminder time at which a
// notification is due, longest first.
var Leads = []int{120, 60, 30, 10, 5}

// MaxLead is the longest lead as a duration.
const MaxLead = 120 * time.Minute

// Reminder is one notification owed to a user for one item and lead.
type Reminder struct {
	User     domain.User
	ItemKey  string
	Content  string
	RemindAt time.Time
	Lead     int // minutes
}

// Label renders the lead: "1 hour", "2 hours", "30 minutes".
func (r Reminder) Label() string {
	return LeadLabel(r.Lead)
}

// LeadLabel renders a lead in minutes for humans.
func LeadLabel(minutes int) string {
	if minutes >= 60 {
		hours := minutes / 60
		if hours > 1 {
			return strconv.Itoa(hours) + " hours"
		}
		return "1 hour"
	}
	return strconv.Itoa(minutes) + " minutes"
}

// Message renders the direct message sent for the reminder.
func (r Reminder) Message(style Style) string {
	content := r.Content
	if content == "" {
		content = "No content"
	}
	return "⏰ Reminder: " + style.Bold(content) + " in " + r.Label() + "!"
}

// MinutesUntil is floor((at - now) in minutes).
func MinutesUntil(at, now time.Time) int {
	return int(math.Floor(at.Sub(now).Minutes()))
}

func isLead(delta int) bool {
	for _, l := range Leads {
		if delta == l {
			return true
		}
	}
	return false
}

// EvaluateReminders returns one Reminder for every item whose reminder time
// is exactly one of Leads whole minutes after now. It keeps no memory of
// earlier calls; see Ledger for deduplication.
func (b *Builder) EvaluateReminders(batch Batch, now time.Time) []Reminder {
	var out []Reminder
	for _, e := range b.entries(batch) {
		if e.Err != nil {
			continue
		}
		for _, it := range e.Items {
			if it.RemindAt == nil {
				continue
			}
			delta := MinutesUntil(*it.RemindAt, now)
			if !isLead(delta) {
				continue
			}
			out = append(out, Reminder{
				User:     e.user,
				ItemKey:  it.Key(),
				Content:  it.Content,
				RemindAt: *it.RemindAt,
				Lead:     delta,
			})
		}
	}
	return out
}
