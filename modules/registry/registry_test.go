package registry

import (
	"fmt"
	"sync"
	"testing"
)

type nopSender struct{}

func (nopSender) Send([]byte) error { return nil }

func TestRegistry_RegisterAndUnregister(t *testing.T) {
	reg := New()

	cameOnline, err := reg.Register(NewConnection("h1", "alice", nopSender{}))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !cameOnline {
		t.Error("Register() cameOnline = false, want true for first connection")
	}

	username, wentOffline, ok := reg.Unregister("h1")
	if !ok {
		t.Fatal("Unregister() ok = false, want true")
	}
	if username != "alice" {
		t.Errorf("Unregister() username = %q, want %q", username, "alice")
	}
	if !wentOffline {
		t.Error("Unregister() wentOffline = false, want true for last connection")
	}

	for _, name := range reg.SnapshotOnline() {
		if name == "alice" {
			t.Error("SnapshotOnline() still contains unregistered username")
		}
	}
}

func TestRegistry_DuplicateHandle(t *testing.T) {
	reg := New()

	if _, err := reg.Register(NewConnection("h1", "alice", nopSender{})); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := reg.Register(NewConnection("h1", "bob", nopSender{}))
	if err != ErrDuplicateConnection {
		t.Errorf("Register() error = %v, want ErrDuplicateConnection", err)
	}
}

func TestRegistry_UnregisterUnknownHandle(t *testing.T) {
	reg := New()

	_, _, ok := reg.Unregister("never-registered")
	if ok {
		t.Error("Unregister() ok = true, want false for unknown handle")
	}
}

func TestRegistry_DoubleUnregister(t *testing.T) {
	reg := New()
	_, _ = reg.Register(NewConnection("h1", "alice", nopSender{}))

	if _, _, ok := reg.Unregister("h1"); !ok {
		t.Fatal("first Unregister() ok = false, want true")
	}
	if _, _, ok := reg.Unregister("h1"); ok {
		t.Error("second Unregister() ok = true, want no-op not-found")
	}
}

func TestRegistry_MultiDevicePresence(t *testing.T) {
	reg := New()

	cameOnline, _ := reg.Register(NewConnection("h1", "alice", nopSender{}))
	if !cameOnline {
		t.Error("first connection: cameOnline = false, want true")
	}

	cameOnline, _ = reg.Register(NewConnection("h2", "alice", nopSender{}))
	if cameOnline {
		t.Error("second connection of same user: cameOnline = true, want false")
	}

	_, wentOffline, _ := reg.Unregister("h1")
	if wentOffline {
		t.Error("first unregister: wentOffline = true, want false (h2 still live)")
	}

	_, wentOffline, _ = reg.Unregister("h2")
	if !wentOffline {
		t.Error("last unregister: wentOffline = false, want true")
	}

	if got := len(reg.SnapshotOnline()); got != 0 {
		t.Errorf("SnapshotOnline() size = %d, want 0", got)
	}
}

func TestRegistry_SnapshotOnlineSorted(t *testing.T) {
	reg := New()
	for _, name := range []string{"carol", "alice", "bob"} {
		_, _ = reg.Register(NewConnection("h-"+name, name, nopSender{}))
	}

	online := reg.SnapshotOnline()
	want := []string{"alice", "bob", "carol"}
	if len(online) != len(want) {
		t.Fatalf("SnapshotOnline() size = %d, want %d", len(online), len(want))
	}
	for i := range want {
		if online[i] != want[i] {
			t.Errorf("SnapshotOnline()[%d] = %q, want %q", i, online[i], want[i])
		}
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := New()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			handle := fmt.Sprintf("h%d", n)
			user := fmt.Sprintf("user%d", n%8)
			if _, err := reg.Register(NewConnection(handle, user, nopSender{})); err != nil {
				t.Errorf("Register(%s) error = %v", handle, err)
			}
			reg.SnapshotOnline()
			reg.Snapshot()
			if _, _, ok := reg.Unregister(handle); !ok {
				t.Errorf("Unregister(%s) ok = false", handle)
			}
		}(i)
	}
	wg.Wait()

	if reg.Count() != 0 {
		t.Errorf("Count() = %d after all unregistered, want 0", reg.Count())
	}
	if got := len(reg.SnapshotOnline()); got != 0 {
		t.Errorf("SnapshotOnline() size = %d, want 0", got)
	}
}
