package netwatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"
)

type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) OnNetworkConnected() {
	l.mu.Lock()
	l.events = append(l.events, "up")
	l.mu.Unlock()
}

func (l *recordingListener) OnNetworkConnectionLost() {
	l.mu.Lock()
	l.events = append(l.events, "down")
	l.mu.Unlock()
}

func (l *recordingListener) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// scriptedProbe returns results in order, repeating the last one.
type scriptedProbe struct {
	mu      sync.Mutex
	results []error
}

func (p *scriptedProbe) Check(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	return err
}

var errDown = errors.New("down")

func TestWatcher_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		results   []error
		threshold int
		want      []string
	}{
		{
			name:    "first success reports up",
			results: []error{nil},
			want:    []string{"up"},
		},
		{
			name:    "repeated success reports once",
			results: []error{nil, nil, nil},
			want:    []string{"up"},
		},
		{
			name:    "failure before first success reports nothing",
			results: []error{errDown, errDown},
			want:    nil,
		},
		{
			name:    "up then down then up",
			results: []error{nil, errDown, nil},
			want:    []string{"up", "down", "up"},
		},
		{
			name:      "threshold debounces a single failure",
			results:   []error{nil, errDown, nil},
			threshold: 2,
			want:      []string{"up"},
		},
		{
			name:      "threshold reached",
			results:   []error{nil, errDown, errDown, errDown},
			threshold: 2,
			want:      []string{"up", "down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listener := &recordingListener{}
			w := New(&scriptedProbe{results: tt.results}, listener, Options{FailureThreshold: tt.threshold})

			for range tt.results {
				w.Check(context.Background())
			}

			if got := listener.snapshot(); fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("events = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatcher_Up(t *testing.T) {
	w := New(AlwaysUp, &recordingListener{}, Options{})

	if w.Up() {
		t.Error("Up() = true before first check, want false")
	}
	w.Check(context.Background())
	if !w.Up() {
		t.Error("Up() = false after successful check, want true")
	}
}

func TestWatcher_CancelledCheckIgnored(t *testing.T) {
	listener := &recordingListener{}
	probe := &scriptedProbe{results: []error{nil, context.Canceled}}
	w := New(probe, listener, Options{})

	w.Check(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Check(ctx)

	if got := listener.snapshot(); fmt.Sprint(got) != "[up]" {
		t.Errorf("events = %v, want [up]", got)
	}
}

func TestWatcher_RunChecksImmediately(t *testing.T) {
	listener := &recordingListener{}
	w := New(AlwaysUp, listener, Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(listener.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if got := listener.snapshot(); fmt.Sprint(got) != "[up]" {
		t.Errorf("events = %v, want [up]", got)
	}
}

func TestDialProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	addr := ln.Addr().String()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	if err := DialProbe(addr, time.Second).Check(context.Background()); err != nil {
		t.Errorf("DialProbe(listening).Check() error = %v", err)
	}

	ln.Close()

	if err := DialProbe(addr, time.Second).Check(context.Background()); err == nil {
		t.Error("DialProbe(closed).Check() error = nil, want error")
	}
}

func TestInterfaceProbe_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := InterfaceProbe().Check(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Check() error = %v, want context.Canceled", err)
	}
}
