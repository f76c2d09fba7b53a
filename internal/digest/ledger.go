package digest

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultLedgerSize = 4096

// Ledger remembers which (user, item, reminder time, lead) reminders were already sent in
// this process. It is bounded; the oldest entries fall out first.
type Ledger struct {
	mu    sync.Mutex
	cache *lru.Cache[string, time.Time] // key -> reminder timestamp
}

// NewLedger creates a ledger holding at most size entries.
func NewLedger(size int) (*Ledger, error) {
	if size <= 0 {
		size = defaultLedgerSize
	}
	cache, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("reminder ledger init: %w", err)
	}
	return &Ledger{cache: cache}, nil
}

func ledgerKey(r Reminder) string {
	return r.User.ProviderID + "\x00" + r.ItemKey + "\x00" +
		strconv.FormatInt(r.RemindAt.Unix(), 10) + "\x00" + strconv.Itoa(r.Lead)
}

// Claim records r and reports whether it was new. A false result means the
// reminder was already sent and must be skipped.
func (l *Ledger) Claim(r Reminder) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(r)
	if l.cache.Contains(key) {
		return false
	}
	l.cache.Add(key, r.RemindAt)
	return true
}

// Prune drops entries whose reminder time is before now. It returns the
// number of dropped entries.
func (l *Ledger) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for _, k := range l.cache.Keys() {
		at, ok := l.cache.Peek(k)
		if ok && at.Before(now) {
			l.cache.Remove(k)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of remembered reminders.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Len()
}
