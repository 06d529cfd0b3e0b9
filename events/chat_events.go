package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// PresenceEvent is emitted when a username's online-set membership changes.
// OriginHandle identifies the connection that caused the transition so the
// broadcast module can exclude it from the fan-out.
type PresenceEvent struct {
	Username     string    `json:"username"`
	OriginHandle string    `json:"origin_handle"`
	Timestamp    time.Time `json:"timestamp"`
}

// TypingEvent is emitted when a connection reports typing activity.
type TypingEvent struct {
	Username     string    `json:"username"`
	OriginHandle string    `json:"origin_handle"`
	Timestamp    time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	// PresenceJoinedV1 is published when a user comes online.
	PresenceJoinedV1 = helper.EventDefinition[PresenceEvent](
		"gateway",
		"PresenceJoined",
		"v1",
	)

	// PresenceLeftV1 is published when a user's last connection closes.
	PresenceLeftV1 = helper.EventDefinition[PresenceEvent](
		"gateway",
		"PresenceLeft",
		"v1",
	)

	// TypingStartedV1 is published when a user starts typing.
	TypingStartedV1 = helper.EventDefinition[TypingEvent](
		"broadcast",
		"TypingStarted",
		"v1",
	)
)
