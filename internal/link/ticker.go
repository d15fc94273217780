package link

import (
	"sync"
	"time"
)

// Ticker is a one-shot, cancellable timer service.
//
// Once schedules fn to run after delay, replacing any pending callback.
// Detach cancels the pending callback, if any. Neither call blocks.
type Ticker interface {
	Once(delay time.Duration, fn func())
	Detach()
}

// timerTicker implements Ticker with time.AfterFunc.
// The callback runs on its own goroutine.
type timerTicker struct {
	mu    sync.Mutex
	timer *time.Timer
}

// NewTicker returns a Ticker backed by time.AfterFunc.
func NewTicker() Ticker {
	return &timerTicker{}
}

func (t *timerTicker) Once(delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(delay, fn)
}

func (t *timerTicker) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
