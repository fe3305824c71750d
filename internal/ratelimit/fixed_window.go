package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultWindow = time.Minute
	DefaultLimit  = 3
)

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindow throttles requests per key with a fixed-window counter. It is
// best-effort and process-local; counters vanish on restart and carry no
// cross-process guarantee.
type FixedWindow struct {
	mu      sync.Mutex
	entries map[string]*window
	window  time.Duration
	limit   int
	now     func() time.Time
}

func NewFixedWindow(windowSize time.Duration, limit int) *FixedWindow {
	if windowSize <= 0 {
		windowSize = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &FixedWindow{
		entries: make(map[string]*window),
		window:  windowSize,
		limit:   limit,
		now:     time.Now,
	}
}

// Allow reports whether key may make another request in the current window,
// counting the request when it does.
func (l *FixedWindow) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		l.entries[key] = &window{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if entry.count < l.limit {
		entry.count++
		return true
	}
	return false
}
