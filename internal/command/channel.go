package command

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/nerrad567/megunolink-mqtt/internal/link"
)

// Topic QoS levels used by the channel.
const (
	// commandQoS is the subscription QoS for the command topic.
	commandQoS = 2

	// responseQoS is the publish QoS for replies.
	responseQoS = 0
)

// Dispatcher executes one command and writes its reply to response.
//
// Implementations must not retain response after returning.
type Dispatcher interface {
	DispatchCommand(command string, response io.Writer)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(command string, response io.Writer)

// DispatchCommand calls f(command, response).
func (f DispatcherFunc) DispatchCommand(command string, response io.Writer) {
	f(command, response)
}

// Link is the part of link.Manager the channel depends on.
type Link interface {
	BuildTopic(leaf string) string
	BuildTopicFor(deviceID, leaf string) string
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte) error
	Unsubscribe(topic string) error
	SubscribeToConnect(handler link.ConnectHandler)
	SubscribeToMessage(handler link.MessageHandler)
	SubscribeToDeviceIDChanged(handler link.DeviceIDChangedHandler)
}

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Channel receives commands on the device's command topic and publishes
// replies on its response topic.
//
// Thread Safety:
//   - Commands are dispatched one at a time; the response buffer is shared.
//   - A Dispatcher may call back into the link (for example to change the
//     device id). The reply is published to the response topic of the id
//     current after dispatch.
type Channel struct {
	link       Link
	dispatcher Dispatcher
	logger     Logger

	// mu serialises dispatch and guards response.
	mu       sync.Mutex
	response ResponseBuffer

	hookMu     sync.RWMutex
	onDispatch func(command string, responseLen int)
}

// NewChannel creates a Channel and registers it with l for connect,
// message and device-id-changed events. A nil logger discards output.
func NewChannel(l Link, dispatcher Dispatcher, logger Logger) *Channel {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	c := &Channel{
		link:       l,
		dispatcher: dispatcher,
		logger:     logger,
	}

	l.SubscribeToConnect(c.handleConnect)
	l.SubscribeToMessage(c.handleMessage)
	l.SubscribeToDeviceIDChanged(c.handleDeviceIDChanged)

	return c
}

// SetOnDispatch sets a callback invoked after every dispatched command with
// the command text and the length of the reply (0 when nothing was sent).
func (c *Channel) SetOnDispatch(callback func(command string, responseLen int)) {
	c.hookMu.Lock()
	c.onDispatch = callback
	c.hookMu.Unlock()
}

// CommandTopic returns the topic the channel currently listens on.
func (c *Channel) CommandTopic() string {
	return c.link.BuildTopic(link.TopicCommand)
}

// ResponseTopic returns the topic replies are currently published to.
func (c *Channel) ResponseTopic() string {
	return c.link.BuildTopic(link.TopicResponse)
}

func (c *Channel) subscribeToCommands() {
	topic := c.CommandTopic()
	if err := c.link.Subscribe(topic, commandQoS); err != nil {
		c.logger.Warn("command topic subscribe failed", "topic", topic, "error", err)
	}
}

func (c *Channel) handleConnect(_ bool) {
	c.subscribeToCommands()
}

func (c *Channel) handleDeviceIDChanged(mqttConnected bool, oldID, _ string) {
	if !mqttConnected {
		return
	}

	oldTopic := c.link.BuildTopicFor(oldID, link.TopicCommand)
	if err := c.link.Unsubscribe(oldTopic); err != nil {
		c.logger.Warn("command topic unsubscribe failed", "topic", oldTopic, "error", err)
	}
	c.subscribeToCommands()
}

func (c *Channel) handleMessage(msg link.Message) {
	if !strings.HasPrefix(msg.Topic, c.CommandTopic()) {
		return
	}

	command, ok := ParseCommand(msg.Payload)
	if !ok {
		return
	}

	c.Dispatch(command)
}

// Dispatch runs command through the dispatcher, publishes any reply and
// returns it. It is the path taken by every accepted command message and
// may also be used to inject a command locally.
func (c *Channel) Dispatch(command string) []byte {
	c.mu.Lock()
	c.response.Reset()
	c.dispatcher.DispatchCommand(command, &c.response)
	if c.response.Truncated() {
		c.logger.Warn("command response truncated", "command", command, "capacity", ResponseCapacity)
	}
	reply := bytes.Clone(c.response.Bytes())
	c.mu.Unlock()

	if len(reply) > 0 {
		topic := c.ResponseTopic()
		if err := c.link.Publish(topic, reply, responseQoS, false); err != nil {
			c.logger.Warn("command response publish failed", "topic", topic, "error", err)
		}
	}

	c.logger.Debug("command dispatched", "command", command, "response_bytes", len(reply))

	c.hookMu.RLock()
	hook := c.onDispatch
	c.hookMu.RUnlock()
	if hook != nil {
		hook(command, len(reply))
	}

	return reply
}
