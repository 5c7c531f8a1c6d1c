package rooms

import (
	"errors"
	"sync"
	"time"
)

const (
	messageRateWindow       = 10 * time.Second
	messageRateMaxPerWindow = 40
)

// ErrRateLimited is returned by PostMessage when the author posts too fast.
var ErrRateLimited = errors.New("too many messages, try again shortly")

// messageLimiter is a sliding window counter of recent posts per author.
type messageLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	byAuthor map[int][]time.Time
}

func newMessageLimiter(window time.Duration, max int) *messageLimiter {
	return &messageLimiter{
		window:   window,
		max:      max,
		byAuthor: make(map[int][]time.Time),
	}
}

// allow reports whether authorID may post at now and, if so, records the post.
func (l *messageLimiter) allow(authorID int, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := now.Add(-l.window)
	recent := l.byAuthor[authorID][:0]
	for _, ts := range l.byAuthor[authorID] {
		if ts.After(windowStart) {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= l.max {
		l.byAuthor[authorID] = recent
		return false
	}
	l.byAuthor[authorID] = append(recent, now)
	return true
}

// forget drops the post recorded at ts, used when the store rejects it.
func (l *messageLimiter) forget(authorID int, ts time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := l.byAuthor[authorID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Equal(ts) {
			l.byAuthor[authorID] = append(events[:i], events[i+1:]...)
			break
		}
	}
	if len(l.byAuthor[authorID]) == 0 {
		delete(l.byAuthor, authorID)
	}
}
