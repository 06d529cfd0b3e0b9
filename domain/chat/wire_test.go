package chat

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFrame_TimestampOnlyWhenSet(t *testing.T) {
	typing, err := json.Marshal(Frame{Type: FrameTyping, Username: "alice"})
	if err != nil {
		t.Fatalf("failed to marshal typing frame: %v", err)
	}
	if strings.Contains(string(typing), "timestamp") {
		t.Errorf("typing frame should omit timestamp, got %s", typing)
	}

	errFrame, err := json.Marshal(ErrorFrame("nope"))
	if err != nil {
		t.Fatalf("failed to marshal error frame: %v", err)
	}
	if strings.Contains(string(errFrame), "timestamp") {
		t.Errorf("error frame should omit timestamp, got %s", errFrame)
	}

	msg := &Message{
		ID:        7,
		Username:  "alice",
		Content:   "hi",
		Timestamp: time.Date(2026, 9, 1, 9, 5, 0, 0, time.UTC),
	}
	data, err := json.Marshal(MessageFrame(msg))
	if err != nil {
		t.Fatalf("failed to marshal message frame: %v", err)
	}
	if !strings.Contains(string(data), `"timestamp":"2026-09-01T09:05:00Z"`) {
		t.Errorf("message frame should carry the timestamp, got %s", data)
	}
	if !strings.Contains(string(data), `"time_stamp":"09:05"`) {
		t.Errorf("message frame should carry the clock time, got %s", data)
	}
}
