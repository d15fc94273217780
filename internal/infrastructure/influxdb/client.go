package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/megunolink-mqtt/internal/infrastructure/config"
)

const (
	// pingTimeout caps the connectivity ping in Connect and HealthCheck.
	pingTimeout = 5 * time.Second

	// Batch defaults used when the config leaves them unset.
	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second

	// serviceTag is added to every point so link telemetry can be told
	// apart from other writers sharing the bucket.
	serviceTag = "megunolink-mqtt"
)

// Client records link telemetry in InfluxDB.
//
// Writes are batched by the non-blocking write API; a write after Close is
// dropped. Async write failures are counted and passed to the SetOnError
// callback.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	closed      atomic.Bool
	writeErrors atomic.Uint64

	mu      sync.RWMutex
	onError func(err error)
}

// clientOptions maps the config onto influxdb2 options.
func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batchSize := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batchSize = uint(cfg.BatchSize)
	}
	flushInterval := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flushInterval = time.Duration(cfg.FlushInterval) * time.Second
	}

	return influxdb2.DefaultOptions().
		SetBatchSize(batchSize).
		SetFlushInterval(uint(flushInterval / time.Millisecond)).
		AddDefaultTag("service", serviceTag)
}

// Connect creates a client and verifies the server answers a ping.
//
// Parameters:
//   - ctx: Bounds the ping, together with a 5s cap
//   - cfg: InfluxDB section of the configuration
//
// Returns:
//   - *Client: Ready for writes
//   - error: ErrDisabled, or ErrConnectionFailed wrapping the cause
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))

	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go c.drainErrors(c.writeAPI.Errors())

	return c, nil
}

func ping(ctx context.Context, client influxdb2.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

// drainErrors counts async write failures and reports them.
// The channel closes when the client is closed.
func (c *Client) drainErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.writeErrors.Add(1)

		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}

// write queues a point stamped now. Dropped after Close.
func (c *Client) write(measurement string, tags map[string]string, fields map[string]interface{}) {
	if c.closed.Load() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

// Close flushes pending points and closes the client. Safe on a nil
// Client and safe to call twice.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.closed.Swap(true) {
		return nil
	}

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// IsConnected reports whether the client accepts writes, i.e. it has not
// been closed. It does not contact the server; use HealthCheck for that.
func (c *Client) IsConnected() bool {
	return !c.closed.Load()
}

// WriteErrors returns the number of async write failures so far.
func (c *Client) WriteErrors() uint64 {
	return c.writeErrors.Load()
}

// SetOnError sets a callback for async write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// Flush blocks until buffered points are sent. No-op after Close.
func (c *Client) Flush() {
	if c.closed.Load() {
		return
	}
	c.writeAPI.Flush()
}
