// ratelimit/ratelimit.go
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Rule bounds one action type to Max occurrences per sliding Window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Limiter tracks recent action timestamps per (action type, subject).
// Windows are created lazily, pruned on every check and dropped once empty
// during Cleanup so idle subjects cost nothing.
type Limiter struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	rules   map[string]Rule
	windows map[string]map[string][]time.Time // action -> subject -> timestamps
}

func New(clock clockwork.Clock, rules map[string]Rule) *Limiter {
	return &Limiter{
		clock:   clock,
		rules:   rules,
		windows: make(map[string]map[string][]time.Time),
	}
}

// Allow checks and records in one step. Actions without a configured rule are
// always allowed and never recorded.
func (l *Limiter) Allow(action, subject string) bool {
	rule, ok := l.rules[action]
	if !ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	subjects := l.windows[action]
	if subjects == nil {
		subjects = make(map[string][]time.Time)
		l.windows[action] = subjects
	}

	now := l.clock.Now()
	window := l.pruneLocked(action, subject, now, rule.Window)
	if len(window) >= rule.Max {
		subjects[subject] = window
		return false
	}

	subjects[subject] = append(window, now)
	return true
}

// Remaining reports how many actions are left in the current window and how
// long until the oldest recorded action slides out. Read-only.
func (l *Limiter) Remaining(action, subject string) (int, time.Duration) {
	rule, ok := l.rules[action]
	if !ok {
		return 0, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	cutoff := now.Add(-rule.Window)

	var live []time.Time
	for _, ts := range l.windows[action][subject] {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	remaining := rule.Max - len(live)
	if remaining < 0 {
		remaining = 0
	}
	var resetIn time.Duration
	if len(live) > 0 {
		resetIn = live[0].Add(rule.Window).Sub(now)
	}
	return remaining, resetIn
}

// Clear drops every window for a subject, called on disconnect.
func (l *Limiter) Clear(subject string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, subjects := range l.windows {
		delete(subjects, subject)
	}
}

// Cleanup prunes stale timestamps everywhere and removes empty windows.
// Runs on a periodic cadence.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for action, subjects := range l.windows {
		rule := l.rules[action]
		for subject := range subjects {
			window := l.pruneLocked(action, subject, now, rule.Window)
			if len(window) == 0 {
				delete(subjects, subject)
			} else {
				subjects[subject] = window
			}
		}
	}
}

// Snapshot counts live windows per action type, for the status surface.
func (l *Limiter) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make(map[string]int, len(l.windows))
	for action, subjects := range l.windows {
		snapshot[action] = len(subjects)
	}
	return snapshot
}

func (l *Limiter) pruneLocked(action, subject string, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	timestamps := l.windows[action][subject]
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
