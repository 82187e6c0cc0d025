// Package globaltime is the single clock behind every persisted timestamp.
// Sources stamp updated_at through UTC() on creation and on each content or
// state mutation, so tests can freeze the clock and assert exact values.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu     sync.RWMutex
	frozen *time.Time
)

// Now returns the current time, or the frozen instant when one is set.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	if frozen != nil {
		return *frozen
	}
	return time.Now()
}

// UTC is Now in UTC. All stored timestamps go through here.
func UTC() time.Time {
	return Now().UTC()
}

// SetMockTime freezes the clock at t until ResetTime.
func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	frozen = &t
}

// ResetTime returns the clock to the wall time.
func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	frozen = nil
}
