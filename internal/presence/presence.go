// Package presence tracks which configured users sit in the lounge voice
// channel and reports when it opens or empties.
package presence

import (
	"sync"

	"github.com/ykvlv/todo-relay/internal/digest"
)

// Kind of a lounge event.
type Kind int

const (
	// Opened means the first configured user entered an empty lounge.
	Opened Kind = iota + 1
	// Emptied means the last configured user left the lounge.
	Emptied
)

func (k Kind) String() string {
	switch k {
	case Opened:
		return "opened"
	case Emptied:
		return "emptied"
	default:
		return "unknown"
	}
}

// Event is a lounge occupancy change worth announcing.
type Event struct {
	Kind   Kind
	UserID string // who caused it
}

// Message renders the announcement for e.
func (e Event) Message(style digest.Style) string {
	if e.Kind == Opened {
		return "🎧 " + style.Mention(e.UserID) + " is in the lounge — come hang out!"
	}
	return "🔇 The lounge is empty now."
}

// Tracker keeps the set of configured users currently in the lounge.
type Tracker struct {
	mu       sync.Mutex
	lounge   string
	relevant map[string]struct{}
	present  map[string]struct{}
}

// NewTracker watches lounge for the given chat user ids.
func NewTracker(lounge string, users []string) *Tracker {
	rel := make(map[string]struct{}, len(users))
	for _, u := range users {
		rel[u] = struct{}{}
	}
	return &Tracker{
		lounge:   lounge,
		relevant: rel,
		present:  make(map[string]struct{}),
	}
}

// Lounge returns the watched channel id.
func (t *Tracker) Lounge() string { return t.lounge }

// Seed records users already in the lounge at startup without producing
// events.
func (t *Tracker) Seed(userIDs ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range userIDs {
		if _, ok := t.relevant[u]; ok {
			t.present[u] = struct{}{}
		}
	}
}

// Update applies a voice state change: userID is now in channelID (empty
// when disconnected). It returns an event when the lounge opened or emptied.
func (t *Tracker) Update(userID, channelID string) (Event, bool) {
	if t.lounge == "" {
		return Event{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.relevant[userID]; !ok {
		return Event{}, false
	}
	_, was := t.present[userID]
	now := channelID == t.lounge

	switch {
	case now && !was:
		t.present[userID] = struct{}{}
		if len(t.present) == 1 {
			return Event{Kind: Opened, UserID: userID}, true
		}
	case !now && was:
		delete(t.present, userID)
		if len(t.present) == 0 {
			return Event{Kind: Emptied, UserID: userID}, true
		}
	}
	return Event{}, false
}

// Occupants returns how many configured users are in the lounge.
func (t *Tracker) Occupants() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.present)
}
