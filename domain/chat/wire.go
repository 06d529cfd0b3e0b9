package chat

import "time"

// Frame types exchanged over the real-time channel.
const (
	FrameMessage        = "message"
	FrameTyping         = "typing"
	FrameHistory        = "history"
	FramePresenceJoined = "presence_joined"
	FramePresenceLeft   = "presence_left"
	FrameLeave          = "leave"
	FrameError          = "error"
)

// Frame is the JSON envelope for all WebSocket traffic, both directions.
// Timestamp is a pointer so frames that carry none (typing, errors) omit
// the field instead of serializing the zero time.
type Frame struct {
	Type      string     `json:"type"`
	ID        uint       `json:"id,omitempty"`
	Username  string     `json:"username,omitempty"`
	Content   string     `json:"content,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	ClockTime string     `json:"time_stamp,omitempty"`
	Messages  []Message  `json:"messages,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// MessageFrame builds the broadcast frame for an accepted chat message.
func MessageFrame(msg *Message) Frame {
	return Frame{
		Type:      FrameMessage,
		ID:        msg.ID,
		Username:  msg.Username,
		Content:   msg.Content,
		Timestamp: &msg.Timestamp,
		ClockTime: msg.ClockTime(),
	}
}

// ErrorFrame builds an error frame for the triggering connection only.
func ErrorFrame(message string) Frame {
	return Frame{
		Type:  FrameError,
		Error: message,
	}
}
