package broadcast

import (
	"context"
	"testing"
	"time"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
	"github.com/burkekuskin-afk/Duckcord/events"
	"github.com/burkekuskin-afk/Duckcord/modules/registry"
)

func TestHub_ExcludedHandleReceivesNothing(t *testing.T) {
	reg := registry.New()
	hub := startHub(t, reg)

	_, aliceSender := connect(t, reg, "h-alice", "alice")
	_, bobSender := connect(t, reg, "h-bob", "bob")

	hub.Enqueue(chat.Frame{Type: chat.FrameTyping, Username: "alice"}, "h-alice")
	// A second, unexcluded frame pins the queue behind the first.
	hub.Enqueue(chat.Frame{Type: chat.FrameTyping, Username: "marker"}, "")

	waitFor(t, func() bool { return len(aliceSender.received()) == 1 }, "marker frame at alice")

	if got := aliceSender.received()[0].Username; got != "marker" {
		t.Errorf("alice received her own excluded frame, got username %q", got)
	}
	waitFor(t, func() bool { return len(bobSender.received()) == 2 }, "both frames at bob")
}

func TestHub_FailedRecipientDoesNotBlockOthers(t *testing.T) {
	reg := registry.New()
	hub := startHub(t, reg)

	_, aliceSender := connect(t, reg, "h-alice", "alice")
	_, bobSender := connect(t, reg, "h-bob", "bob")
	bobSender.fail = true

	hub.Enqueue(chat.Frame{Type: chat.FrameMessage, Username: "alice", Content: "hi"}, "")

	waitFor(t, func() bool { return len(aliceSender.received()) == 1 }, "frame at alice")
	if got := len(bobSender.received()); got != 0 {
		t.Errorf("expected no frames at failed recipient, got %d", got)
	}
}

func TestModule_TypingEventFansOutToOthers(t *testing.T) {
	reg := registry.New()
	mod := NewModule(reg, &flakyAppender{})
	if err := mod.Start(context.Background()); err != nil {
		t.Fatalf("failed to start module: %v", err)
	}
	t.Cleanup(func() { _ = mod.Stop(context.Background()) })

	_, aliceSender := connect(t, reg, "h-alice", "alice")
	_, bobSender := connect(t, reg, "h-bob", "bob")

	event := events.TypingEvent{Username: "alice", OriginHandle: "h-alice", Timestamp: time.Now()}
	if err := mod.handleTypingStarted(context.Background(), event, nil); err != nil {
		t.Fatalf("handleTypingStarted failed: %v", err)
	}

	waitFor(t, func() bool { return len(bobSender.received()) == 1 }, "typing frame at bob")
	f := bobSender.received()[0]
	if f.Type != chat.FrameTyping || f.Username != "alice" {
		t.Errorf("unexpected typing frame %+v", f)
	}
	if got := len(aliceSender.received()); got != 0 {
		t.Errorf("typing must not echo to the origin, alice got %d frames", got)
	}
}

func TestModule_PresenceEventsFanOutToOthers(t *testing.T) {
	reg := registry.New()
	mod := NewModule(reg, &flakyAppender{})
	if err := mod.Start(context.Background()); err != nil {
		t.Fatalf("failed to start module: %v", err)
	}
	t.Cleanup(func() { _ = mod.Stop(context.Background()) })

	_, aliceSender := connect(t, reg, "h-alice", "alice")
	_, bobSender := connect(t, reg, "h-bob", "bob")

	joined := events.PresenceEvent{Username: "alice", OriginHandle: "h-alice", Timestamp: time.Now()}
	if err := mod.handlePresenceJoined(context.Background(), joined, nil); err != nil {
		t.Fatalf("handlePresenceJoined failed: %v", err)
	}
	left := events.PresenceEvent{Username: "carol", Timestamp: time.Now()}
	if err := mod.handlePresenceLeft(context.Background(), left, nil); err != nil {
		t.Fatalf("handlePresenceLeft failed: %v", err)
	}

	waitFor(t, func() bool { return len(bobSender.received()) == 2 }, "presence frames at bob")
	frames := bobSender.received()
	if frames[0].Type != chat.FramePresenceJoined || frames[0].Username != "alice" {
		t.Errorf("unexpected joined frame %+v", frames[0])
	}
	if frames[1].Type != chat.FramePresenceLeft || frames[1].Username != "carol" {
		t.Errorf("unexpected left frame %+v", frames[1])
	}

	// carol had already disconnected, so alice sees her departure too.
	waitFor(t, func() bool { return len(aliceSender.received()) == 1 }, "left frame at alice")
	if got := aliceSender.received()[0].Type; got != chat.FramePresenceLeft {
		t.Errorf("alice should only see the departure, got %q", got)
	}
}
