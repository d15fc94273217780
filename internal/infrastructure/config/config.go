package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Network probe kinds accepted in network.probe.
const (
	ProbeInterface = "interface"
	ProbeDial      = "dial"
	ProbeNone      = "none"
)

// Config is the root configuration structure for the MegunoLink MQTT link.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Network  NetworkConfig  `yaml:"network"`
	Stream   StreamConfig   `yaml:"stream"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DeviceConfig contains the identity used to build topics.
type DeviceConfig struct {
	// ID is the device identifier. Empty means derive it from hardware
	// on the first connect attempt.
	ID string `yaml:"id"`

	// RootTopic is the first topic segment. Default: "MegunoLink"
	RootTopic string `yaml:"root_topic"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker       MQTTBrokerConfig    `yaml:"broker"`
	Auth         MQTTAuthConfig      `yaml:"auth"`
	KeepAlive    int                 `yaml:"keep_alive"`
	CleanSession bool                `yaml:"clean_session"`
	Reconnect    MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	// Delay is the fixed wait before a reconnect attempt (seconds).
	Delay int `yaml:"delay"`
}

// NetworkConfig controls how network presence is detected.
type NetworkConfig struct {
	// Probe is one of "interface", "dial" or "none".
	Probe       string `yaml:"probe"`
	Interval    int    `yaml:"interval"`
	DialTimeout int    `yaml:"dial_timeout"`

	// FailureThreshold is how many consecutive failed probes mark the
	// network lost. A live MQTT session is not torn down by a flap.
	FailureThreshold int `yaml:"failure_threshold"`
}

// StreamConfig contains stream publisher settings.
type StreamConfig struct {
	// FlushInterval is the periodic flush period in milliseconds. 0 disables it.
	FlushInterval int `yaml:"flush_interval"`

	// Stdin feeds standard input lines into the stream.
	Stdin bool `yaml:"stdin"`

	// Command is a source program whose stdout lines feed the stream.
	// It is restarted RestartDelay seconds after it exits.
	Command      []string `yaml:"command"`
	RestartDelay int      `yaml:"restart_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the local HTTP control API settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP server timeouts (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket event feed settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MEGUNOLINK_SECTION_KEY
// For example: MEGUNOLINK_DEVICE_ID, MEGUNOLINK_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOptional is Load for tools that can run without a config file.
// When path does not exist, defaults plus environment overrides are
// validated and returned instead.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	cfg = Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			RootTopic: "MegunoLink",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			KeepAlive:    60,
			CleanSession: true,
			Reconnect: MQTTReconnectConfig{
				Delay: 5,
			},
		},
		Network: NetworkConfig{
			Probe:            ProbeInterface,
			Interval:         5,
			DialTimeout:      2,
			FailureThreshold: 3,
		},
		Stream: StreamConfig{
			FlushInterval: 500,
			RestartDelay:  5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MEGUNOLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("MEGUNOLINK_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}

	// MQTT
	if v := os.Getenv("MEGUNOLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MEGUNOLINK_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("MEGUNOLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MEGUNOLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("MEGUNOLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API
	if v := os.Getenv("MEGUNOLINK_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Device validation
	if c.Device.RootTopic == "" {
		errs = append(errs, "device.root_topic is required")
	} else if strings.ContainsAny(c.Device.RootTopic, "+#") {
		errs = append(errs, "device.root_topic must not contain MQTT wildcards")
	}
	if strings.ContainsAny(c.Device.ID, "/+#") {
		errs = append(errs, "device.id must not contain '/', '+' or '#'")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Reconnect.Delay < 1 {
		errs = append(errs, "mqtt.reconnect.delay must be at least 1 second")
	}
	if c.MQTT.KeepAlive < 0 {
		errs = append(errs, "mqtt.keep_alive must not be negative")
	}

	// Network validation
	switch c.Network.Probe {
	case ProbeInterface, ProbeDial, ProbeNone:
	default:
		errs = append(errs, "network.probe must be interface, dial or none")
	}
	if c.Network.Probe != ProbeNone && c.Network.Interval < 1 {
		errs = append(errs, "network.interval must be at least 1 second")
	}
	if c.Network.FailureThreshold < 1 {
		errs = append(errs, "network.failure_threshold must be at least 1")
	}

	// Stream validation
	if c.Stream.FlushInterval < 0 {
		errs = append(errs, "stream.flush_interval must not be negative")
	}
	if len(c.Stream.Command) > 0 {
		if c.Stream.Command[0] == "" {
			errs = append(errs, "stream.command must name a program")
		}
		if c.Stream.RestartDelay < 1 {
			errs = append(errs, "stream.restart_delay must be at least 1 second")
		}
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	// API validation (only when enabled)
	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if c.API.WebSocket.PingInterval < 1 || c.API.WebSocket.PongTimeout < 1 {
			errs = append(errs, "api.websocket.ping_interval and pong_timeout must be at least 1 second")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReconnectDelay returns the MQTT reconnect delay as a Duration.
func (c *Config) GetReconnectDelay() time.Duration {
	return time.Duration(c.MQTT.Reconnect.Delay) * time.Second
}

// GetProbeInterval returns the network probe interval as a Duration.
func (c *Config) GetProbeInterval() time.Duration {
	return time.Duration(c.Network.Interval) * time.Second
}

// GetDialTimeout returns the dial probe timeout as a Duration.
func (c *Config) GetDialTimeout() time.Duration {
	return time.Duration(c.Network.DialTimeout) * time.Second
}

// GetStreamFlushInterval returns the periodic stream flush period.
// Zero means periodic flushing is disabled.
func (c *Config) GetStreamFlushInterval() time.Duration {
	return time.Duration(c.Stream.FlushInterval) * time.Millisecond
}

// APIAddress returns host:port for the control API listener.
func (c *Config) APIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// GetStreamRestartDelay returns the stream source restart delay as a Duration.
func (c *Config) GetStreamRestartDelay() time.Duration {
	return time.Duration(c.Stream.RestartDelay) * time.Second
}

// BrokerAddress returns host:port for the configured broker.
func (c *Config) BrokerAddress() string {
	return fmt.Sprintf("%s:%d", c.MQTT.Broker.Host, c.MQTT.Broker.Port)
}
