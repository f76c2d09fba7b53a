package domain

import (
	"strconv"
	"time"
)

// Item is a single pending to-do entry fetched for a time window.
// It lives for one fetch/format cycle only.
type Item struct {
	ID       string     // provider id, may be empty
	Content  string     // display text, may be blank
	Due      *time.Time // calendar date the item is scheduled on
	RemindAt *time.Time // absolute reminder timestamp
	Done     bool
}

// Key identifies the item across ticks. The provider id is preferred;
// without one the content and reminder time stand in for it.
func (it Item) Key() string {
	if it.ID != "" {
		return it.ID
	}
	k := it.Content
	if it.RemindAt != nil {
		k += "@" + strconv.FormatInt(it.RemindAt.Unix(), 10)
	}
	return k
}

// DisplayContent returns the content or a placeholder for blank items.
func (it Item) DisplayContent() string {
	if it.Content == "" {
		return "No content"
	}
	return it.Content
}
