package netwatch

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Default watcher settings.
const (
	DefaultInterval         = 5 * time.Second
	DefaultCheckTimeout     = 3 * time.Second
	DefaultFailureThreshold = 1
)

// Listener receives network transitions. link.Manager implements it.
type Listener interface {
	OnNetworkConnected()
	OnNetworkConnectionLost()
}

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Options configures a Watcher. Zero values select the defaults.
type Options struct {
	// Interval between checks. Default: DefaultInterval
	Interval time.Duration

	// CheckTimeout bounds a single Probe.Check call. Default: DefaultCheckTimeout
	CheckTimeout time.Duration

	// FailureThreshold is how many consecutive failed checks report the
	// network as lost. Default: DefaultFailureThreshold
	FailureThreshold int

	// Logger receives transition logging. Default: discard
	Logger Logger
}

// Watcher polls a Probe and notifies a Listener on transitions.
type Watcher struct {
	probe    Probe
	listener Listener
	opts     Options

	mu       sync.RWMutex
	up       bool
	failures int
}

// New creates a Watcher.
func New(probe Probe, listener Listener, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = DefaultCheckTimeout
	}
	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	return &Watcher{probe: probe, listener: listener, opts: opts}
}

// Up reports the last known network state.
func (w *Watcher) Up() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.up
}

// Run checks immediately and then every interval until ctx is done.
// It does not report a transition when it stops.
func (w *Watcher) Run(ctx context.Context) {
	w.Check(ctx)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check runs the probe once and notifies the listener if the state changed.
func (w *Watcher) Check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, w.opts.CheckTimeout)
	err := w.probe.Check(checkCtx)
	cancel()

	// Shutting down; a cancelled probe says nothing about the network.
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	var notify func()
	switch {
	case err == nil:
		w.failures = 0
		if !w.up {
			w.up = true
			notify = w.listener.OnNetworkConnected
		}
	default:
		w.failures++
		if w.up && w.failures >= w.opts.FailureThreshold {
			w.up = false
			notify = w.listener.OnNetworkConnectionLost
		}
	}
	up, failures := w.up, w.failures
	w.mu.Unlock()

	if err != nil && up {
		w.opts.Logger.Warn("network check failed", "error", err, "consecutive_failures", failures)
	}
	if notify == nil {
		return
	}

	if up {
		w.opts.Logger.Info("network up")
	} else {
		w.opts.Logger.Warn("network down", "error", err)
	}
	notify()
}
