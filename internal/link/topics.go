package link

// DefaultRootTopic is the first topic segment when none is configured.
const DefaultRootTopic = "MegunoLink"

// Topic leaves under {root}/{deviceId}/.
const (
	// TopicStatus carries retained "online"/"offline" presence.
	TopicStatus = "status"

	// TopicCommand receives "!"-prefixed command lines.
	TopicCommand = "command"

	// TopicResponse carries command dispatcher output.
	TopicResponse = "response"

	// TopicStream carries buffered telemetry.
	TopicStream = "stream"
)

// Status payloads published to TopicStatus.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// BuildTopic composes root/deviceID/leaf.
//
// No validation is performed on any segment; callers own the character
// content. Safe to call at any time, connected or not.
//
// Example: MegunoLink/3c71bf4a/command
func BuildTopic(root, deviceID, leaf string) string {
	topic := make([]byte, 0, len(root)+len(deviceID)+len(leaf)+2)
	topic = append(topic, root...)
	topic = append(topic, '/')
	topic = append(topic, deviceID...)
	topic = append(topic, '/')
	topic = append(topic, leaf...)
	return string(topic)
}
