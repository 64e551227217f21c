package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "colorbridge"

// Topics builds colorbridge MQTT topics under a common prefix.
//
//	topics := mqtt.NewTopics("colorbridge")
//	topics.LightState("0a:1b:2c:3d:4e:5f:60:71")
//	// Returns: "colorbridge/light/0a1b2c3d4e5f6071/state"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for the given prefix. Trailing slashes are trimmed.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// SystemStatus returns the retained online/offline topic.
//
// Example: colorbridge/system/status
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}

// LightState returns the retained colour state topic for one light.
// Separators are stripped from the address so it forms a single topic level.
//
// Example: colorbridge/light/0a1b2c3d4e5f6071/state
func (t Topics) LightState(address string) string {
	return fmt.Sprintf("%s/light/%s/state", t.prefix, topicSafe(address))
}

// Frames returns the topic announcing posted camera frames.
//
// Example: colorbridge/light/0a1b2c3d4e5f6071/frame
func (t Topics) Frames(address string) string {
	return fmt.Sprintf("%s/light/%s/frame", t.prefix, topicSafe(address))
}

func topicSafe(s string) string {
	return strings.NewReplacer(":", "", "/", "", "+", "", "#", "", " ", "").Replace(s)
}
