package mqtt

import (
	"context"
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// subackFailure is the SUBACK return code for a refused subscription.
const subackFailure = 0x80

// Subscribe asks the broker for messages on topic.
//
// Matching messages are delivered to Events.HandleMessage; there is no
// per-topic handler. Subscriptions are not tracked or restored: after a
// reconnect the link manager's connect handlers subscribe again.
//
// Parameters:
//   - topic: The topic filter to subscribe to (wildcards allowed)
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//
// Returns:
//   - error: validation failure or ErrNotConnected
func (c *Client) Subscribe(topic string, qos byte) error {
	// Validate inputs
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	client, err := c.currentClient()
	if err != nil {
		return err
	}

	token := client.Subscribe(topic, qos, nil)
	c.watchToken(token, ErrSubscribeFailed, topic)

	return nil
}

// SubscribeWait is Subscribe for callers outside Events callbacks: it
// blocks until the broker acknowledges the subscription, so messages
// published afterwards are guaranteed to be delivered.
//
// Must not be called from an Events callback; paho delivers the SUBACK on
// the same goroutine.
//
// Parameters:
//   - ctx: Bounds the wait for the SUBACK
//   - topic: The topic filter to subscribe to (wildcards allowed)
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//
// Returns:
//   - error: validation failure, ErrNotConnected, or ErrSubscribeFailed
//     wrapping the broker refusal or ctx error
func (c *Client) SubscribeWait(ctx context.Context, topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	client, err := c.currentClient()
	if err != nil {
		return err
	}

	token := client.Subscribe(topic, qos, nil)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		if code, found := st.Result()[topic]; found && code == subackFailure {
			return fmt.Errorf("%w: broker refused %s", ErrSubscribeFailed, topic)
		}
	}

	return nil
}

// Unsubscribe removes a subscription.
//
// Any messages in flight may still be delivered.
//
// Parameters:
//   - topic: The exact topic filter that was subscribed to
//
// Returns:
//   - error: validation failure or ErrNotConnected
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	client, err := c.currentClient()
	if err != nil {
		return err
	}

	token := client.Unsubscribe(topic)
	c.watchToken(token, ErrUnsubscribeFailed, topic)

	return nil
}
