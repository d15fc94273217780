package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nerrad567/megunolink-mqtt/internal/api"
	"github.com/nerrad567/megunolink-mqtt/internal/command"
	"github.com/nerrad567/megunolink-mqtt/internal/infrastructure/config"
	"github.com/nerrad567/megunolink-mqtt/internal/infrastructure/influxdb"
	"github.com/nerrad567/megunolink-mqtt/internal/infrastructure/logging"
	"github.com/nerrad567/megunolink-mqtt/internal/infrastructure/mqtt"
	"github.com/nerrad567/megunolink-mqtt/internal/link"
	"github.com/nerrad567/megunolink-mqtt/internal/netwatch"
	"github.com/nerrad567/megunolink-mqtt/internal/process"
	"github.com/nerrad567/megunolink-mqtt/internal/stream"
	"github.com/nerrad567/megunolink-mqtt/internal/telemetry"
)

// run is the daemon logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: YAML configuration file
//   - stdin: Source of stream lines when stream.stdin is enabled
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string, stdin io.Reader) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting megunolink-mqtt",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// MQTT transport and connection lifecycle
	transport := mqtt.New(cfg.MQTT)
	transport.SetLogger(log.Component("mqtt"))

	manager := link.NewManager(transport, link.Options{
		RootTopic:      cfg.Device.RootTopic,
		DeviceID:       cfg.Device.ID,
		ReconnectDelay: cfg.GetReconnectDelay(),
		Logger:         log.Component("link"),
	})
	transport.SetEvents(manager)
	defer func() {
		log.Info("closing MQTT link")
		if closeErr := manager.Close(); closeErr != nil {
			log.Error("error closing MQTT link", "error", closeErr)
		}
	}()
	manager.SubscribeToConnect(func(bool) { manager.LogDeviceID() })

	// Command channel
	table := command.NewTable()
	if err := registerBuiltins(table, manager, time.Now()); err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}
	channel := command.NewChannel(manager, table, log.Component("command"))

	// Stream publisher
	publisher := stream.NewPublisher(manager, log.Component("stream"))

	// Observers of command dispatches and stream flushes
	var hooks observerHooks

	// Telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		recorder := telemetry.NewRecorder(manager, influxClient)
		hooks.add(recorder.RecordCommand, recorder.RecordStreamFlush)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Local control API (optional)
	if cfg.API.Enabled {
		apiServer, err := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.Component("api"),
			Link:     manager,
			Commands: channel,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		apiServer.Hub().BindLink(manager)
		hooks.add(apiServer.Hub().RecordCommand, apiServer.Hub().RecordStreamFlush)

		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	channel.SetOnDispatch(hooks.onDispatch)
	publisher.SetOnFlush(hooks.onFlush)

	var wg sync.WaitGroup

	// Stream flushing and input
	flushInterval := cfg.GetStreamFlushInterval()
	if flushInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			publisher.Run(ctx, flushInterval)
		}()
	}
	if cfg.Stream.Stdin {
		// Not waited for: a blocked stdin read cannot be interrupted.
		go feedStream(ctx, stdin, publisher, flushInterval == 0, log)
	}
	if len(cfg.Stream.Command) > 0 {
		source := newStreamSource(cfg, publisher, flushInterval == 0, log)
		if err := source.Start(ctx); err != nil {
			return fmt.Errorf("starting stream source: %w", err)
		}
		defer func() {
			if stopErr := source.Stop(); stopErr != nil {
				log.Error("error stopping stream source", "error", stopErr)
			}
		}()
	}

	// Network presence drives the connection
	watcher := netwatch.New(selectProbe(cfg), manager, netwatch.Options{
		Interval:         cfg.GetProbeInterval(),
		CheckTimeout:     cfg.GetDialTimeout(),
		FailureThreshold: cfg.Network.FailureThreshold,
		Logger:           log.Component("netwatch"),
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()

	log.Info("initialisation complete, waiting for shutdown signal",
		"broker", cfg.BrokerAddress(),
		"client_id", transport.ClientID(),
		"probe", cfg.Network.Probe,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	wg.Wait()

	// Deferred Close() calls will run in reverse order:
	// 1. Stream source (if configured)
	// 2. API server (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. MQTT link (publishes graceful offline)

	log.Info("megunolink-mqtt stopped")
	return nil
}

// observerHooks fans the single dispatch and flush callbacks out to every
// interested observer. It is filled before the link starts.
type observerHooks struct {
	dispatch []func(command string, responseLen int)
	flush    []func(n int, published bool)
}

func (h *observerHooks) add(dispatch func(string, int), flush func(int, bool)) {
	h.dispatch = append(h.dispatch, dispatch)
	h.flush = append(h.flush, flush)
}

func (h *observerHooks) onDispatch(command string, responseLen int) {
	for _, fn := range h.dispatch {
		fn(command, responseLen)
	}
}

func (h *observerHooks) onFlush(n int, published bool) {
	for _, fn := range h.flush {
		fn(n, published)
	}
}

// selectProbe returns the network probe named in the configuration.
func selectProbe(cfg *config.Config) netwatch.Probe {
	switch cfg.Network.Probe {
	case config.ProbeDial:
		return netwatch.DialProbe(cfg.BrokerAddress(), cfg.GetDialTimeout())
	case config.ProbeNone:
		return netwatch.AlwaysUp
	default:
		return netwatch.InterfaceProbe()
	}
}

// streamWriter is the part of stream.Publisher used by feedStream.
type streamWriter interface {
	WriteString(s string) (int, error)
	Flush() error
}

// feedStream copies lines from r into the stream, terminating each with
// CRLF. When flushEach is set every line is flushed on its own.
func feedStream(ctx context.Context, r io.Reader, w streamWriter, flushEach bool, log *logging.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		writeStreamLine(w, scanner.Text(), flushEach, log)
	}
	if err := scanner.Err(); err != nil {
		log.Warn("stream input closed", "error", err)
	}
}

// writeStreamLine appends one CRLF terminated line to the stream.
func writeStreamLine(w streamWriter, line string, flushEach bool, log *logging.Logger) {
	w.WriteString(line + "\r\n")
	if flushEach {
		if err := w.Flush(); err != nil {
			log.Warn("stream flush failed", "error", err)
		}
	}
}

// newStreamSource supervises the configured stream.command, feeding each
// stdout line into the stream.
func newStreamSource(cfg *config.Config, w streamWriter, flushEach bool, log *logging.Logger) *process.Manager {
	sourceLog := log.Component("stream-source")

	source := process.NewManager(process.Config{
		Name:             "stream-source",
		Binary:           cfg.Stream.Command[0],
		Args:             cfg.Stream.Command[1:],
		RestartOnFailure: true,
		RestartDelay:     cfg.GetStreamRestartDelay(),
		OnLine: func(line string) {
			writeStreamLine(w, line, flushEach, sourceLog)
		},
	})
	source.SetLogger(sourceLog)
	return source
}
