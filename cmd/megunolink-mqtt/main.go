// MegunoLink MQTT link
//
// This is the main entry point for the megunolink-mqtt daemon and tools.
// The daemon connects a device to an MQTT broker using the MegunoLink
// topic scheme:
//
//	{root}/{deviceId}/status    retained online/offline
//	{root}/{deviceId}/command   "!Name params\r\n" in
//	{root}/{deviceId}/response  command replies out
//	{root}/{deviceId}/stream    buffered telemetry out
//
// Subcommands:
//   - run (default): run the device link until SIGINT/SIGTERM
//   - send: send one command to a device and print the reply
//   - version: print build information
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides the default configuration path.
const configEnvVar = "MEGUNOLINK_CONFIG"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path.
// An explicit flag wins, then MEGUNOLINK_CONFIG, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}
