// Package strikes implements the rolling-window revert-strike tracker
// and its one-way "severed" latch: once too many submitted transactions
// revert on-chain within the configured window, every further SEND and
// SIGN is blocked until the process restarts.
package strikes

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tracker counts on-chain reverts within a rolling window and latches
// permanently once the threshold is reached.
type Tracker interface {
	// RecordStrike appends now to the rolling window, prunes expired
	// entries, and latches Severed if the threshold is reached. A no-op
	// when maxStrikes == 0.
	RecordStrike()
	// IsSevered reports the one-way latch. It fails closed (returns
	// true) if the critical section panics — see DESIGN.md Open
	// Question OQ-1.
	IsSevered() bool
}

type tracker struct {
	maxStrikes  uint32
	windowSecs  uint64
	mu          sync.Mutex
	timestamps  []int64
	severed     atomic.Bool
	nowFn       func() int64
}

// New constructs a Tracker with the given threshold and rolling window.
// maxStrikes == 0 disables strike recording entirely.
func New(maxStrikes uint32, windowSecs uint64) Tracker {
	return &tracker{
		maxStrikes: maxStrikes,
		windowSecs: windowSecs,
		nowFn:      func() int64 { return time.Now().Unix() },
	}
}

func (t *tracker) RecordStrike() {
	if t.maxStrikes == 0 {
		return
	}

	now := t.nowFn()
	t.mu.Lock()
	t.timestamps = append(t.timestamps, now)

	cutoff := now - int64(t.windowSecs)
	pruned := t.timestamps[:0]
	for _, ts := range t.timestamps {
		if ts >= cutoff {
			pruned = append(pruned, ts)
		}
	}
	t.timestamps = pruned
	count := len(t.timestamps)
	t.mu.Unlock()

	if count >= int(t.maxStrikes) {
		t.severed.Store(true)
	}
}

func (t *tracker) IsSevered() (severed bool) {
	defer func() {
		if r := recover(); r != nil {
			severed = true
		}
	}()
	return t.severed.Load()
}
