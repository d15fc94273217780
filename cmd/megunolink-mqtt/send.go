package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/megunolink-mqtt/internal/command"
	"github.com/nerrad567/megunolink-mqtt/internal/infrastructure/config"
	"github.com/nerrad567/megunolink-mqtt/internal/infrastructure/mqtt"
	"github.com/nerrad567/megunolink-mqtt/internal/link"
)

// errNoReply is returned when the device does not answer in time.
var errNoReply = errors.New("no reply from device")

// newSendCommand creates the host-side send subcommand.
func newSendCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <device-id> <command> [params...]",
		Short: "Send a command to a device and print its reply",
		Long: `Publishes "!<command> [params...]\r\n" to {root}/<device-id>/command and
prints the first message received on {root}/<device-id>/response.

Broker settings come from the config file; a missing file falls back to
defaults plus MEGUNOLINK_* environment overrides.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			root, _ := cmd.Flags().GetString("root")

			cfg, err := config.LoadOptional(getConfigPath(*configPath))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if root == "" {
				root = cfg.Device.RootTopic
			}

			return sendCommand(cmd.Context(), cfg.MQTT, sendRequest{
				Root:     root,
				DeviceID: args[0],
				Command:  strings.Join(args[1:], " "),
				Timeout:  timeout,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationP("timeout", "t", 5*time.Second, "How long to wait for the reply")
	cmd.Flags().StringP("root", "r", "", "Root topic (default from config)")

	return cmd
}

// sendRequest describes one command round trip.
type sendRequest struct {
	Root     string
	DeviceID string
	Command  string
	Timeout  time.Duration
}

// formatCommand returns the wire payload for a command.
func formatCommand(text string) []byte {
	return []byte(string(command.CommandMarker) + text + "\r\n")
}

// replyWaiter implements mqtt.Events for a one-shot request.
type replyWaiter struct {
	responseTopic string
	connected     chan bool
	failed        chan error
	reply         chan []byte
}

func newReplyWaiter(responseTopic string) *replyWaiter {
	return &replyWaiter{
		responseTopic: responseTopic,
		connected:     make(chan bool, 1),
		failed:        make(chan error, 1),
		reply:         make(chan []byte, 1),
	}
}

func (r *replyWaiter) HandleConnect(sessionPresent bool) {
	select {
	case r.connected <- sessionPresent:
	default:
	}
}

func (r *replyWaiter) HandleDisconnect(reason error) {
	select {
	case r.failed <- reason:
	default:
	}
}

func (r *replyWaiter) HandleMessage(topic string, payload []byte, _ byte, _, _ bool) {
	if topic != r.responseTopic {
		return
	}
	select {
	case r.reply <- payload:
	default:
	}
}

// sendTransport is the part of mqtt.Client a command round trip needs.
type sendTransport interface {
	SetEvents(events mqtt.Events)
	Connect() error
	SubscribeWait(ctx context.Context, topic string, qos byte) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Close() error
}

// sendCommand connects, publishes the command and writes the reply to out.
func sendCommand(ctx context.Context, cfg config.MQTTConfig, req sendRequest, out io.Writer) error {
	return roundTrip(ctx, mqtt.New(cfg), req, out)
}

func roundTrip(ctx context.Context, client sendTransport, req sendRequest, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	responseTopic := link.BuildTopic(req.Root, req.DeviceID, link.TopicResponse)
	commandTopic := link.BuildTopic(req.Root, req.DeviceID, link.TopicCommand)

	waiter := newReplyWaiter(responseTopic)
	client.SetEvents(waiter)
	defer client.Close()

	if err := client.Connect(); err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}

	select {
	case <-waiter.connected:
	case err := <-waiter.failed:
		return fmt.Errorf("connecting to MQTT: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("connecting to MQTT: %w", ctx.Err())
	}

	// The reply can only be caught once the broker has acknowledged the
	// response subscription.
	if err := client.SubscribeWait(ctx, responseTopic, 0); err != nil {
		return fmt.Errorf("subscribing to %s: %w", responseTopic, err)
	}

	if err := client.Publish(commandTopic, formatCommand(req.Command), 2, false); err != nil {
		return fmt.Errorf("publishing to %s: %w", commandTopic, err)
	}

	select {
	case payload := <-waiter.reply:
		_, err := out.Write(payload)
		return err
	case err := <-waiter.failed:
		return fmt.Errorf("connection lost: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("%w within %v", errNoReply, req.Timeout)
	}
}
