// Package process supervises a child process whose standard output is a
// line source, such as a sensor reader feeding the telemetry stream.
//
// Features:
//   - Start/stop subprocess with graceful shutdown (SIGTERM, then SIGKILL)
//   - Automatic restart on failure after a fixed delay
//   - Each stdout line delivered to a callback; stderr logged
//   - Context-based cancellation for clean shutdown
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:             "stream-source",
//	    Binary:           "/usr/local/bin/read-sensors",
//	    Args:             []string{"--interval", "1s"},
//	    RestartOnFailure: true,
//	    OnLine:           func(line string) { publisher.WriteString(line + "\r\n") },
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop()
package process
