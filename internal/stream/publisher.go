package stream

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
)

// streamQoS is the publish QoS for stream messages.
const streamQoS = 0

// Link is the part of link.Manager the publisher depends on.
type Link interface {
	IsMqttConnected() bool
	BuildStreamTopic() string
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Publisher accumulates bytes and publishes them on Flush.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Publisher struct {
	link   Link
	logger Logger

	mu  sync.Mutex
	buf bytes.Buffer

	hookMu  sync.RWMutex
	onFlush func(n int, published bool)
}

// NewPublisher creates a Publisher for l. A nil logger discards output.
func NewPublisher(l Link, logger Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return &Publisher{link: l, logger: logger}
}

// Write appends p to the buffer. It never fails.
func (p *Publisher) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Write(b)
}

// WriteString appends s to the buffer. It never fails.
func (p *Publisher) WriteString(s string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.WriteString(s)
}

// Len returns the number of buffered bytes.
func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Len()
}

// SetOnFlush sets a callback invoked after each Flush of a non-empty
// buffer with the byte count and whether it was published.
func (p *Publisher) SetOnFlush(callback func(n int, published bool)) {
	p.hookMu.Lock()
	p.onFlush = callback
	p.hookMu.Unlock()
}

// Flush publishes the buffered bytes as a single message to the stream
// topic and empties the buffer.
//
// The buffer is emptied whether or not anything was sent. While MQTT is
// disconnected the data is dropped and Flush returns nil. A publish error
// is returned; the data is not retried.
func (p *Publisher) Flush() error {
	p.mu.Lock()
	if p.buf.Len() == 0 {
		p.mu.Unlock()
		return nil
	}
	payload := bytes.Clone(p.buf.Bytes())
	p.buf.Reset()
	p.mu.Unlock()

	var err error
	published := false
	if p.link.IsMqttConnected() {
		topic := p.link.BuildStreamTopic()
		if err = p.link.Publish(topic, payload, streamQoS, false); err == nil {
			published = true
		}
	} else {
		p.logger.Debug("stream data dropped while disconnected", "bytes", len(payload))
	}

	p.hookMu.RLock()
	hook := p.onFlush
	p.hookMu.RUnlock()
	if hook != nil {
		hook(len(payload), published)
	}

	return err
}

// Run flushes every interval until ctx is done, then flushes once more.
// A non-positive interval returns immediately.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.Flush(); err != nil {
				p.logger.Warn("stream flush failed", "error", err)
			}
		case <-ctx.Done():
			if err := p.Flush(); err != nil {
				p.logger.Warn("final stream flush failed", "error", err)
			}
			return
		}
	}
}
