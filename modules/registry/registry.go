// Package registry tracks which authenticated identities currently hold live
// connections. It exclusively owns the handle-to-username mapping; all access
// goes through atomic register/unregister/snapshot operations.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrDuplicateConnection is returned when a handle is registered twice.
// This is an invariant violation, not a normal runtime condition: callers
// must close the connection and log loudly rather than continue.
var ErrDuplicateConnection = errors.New("connection handle already registered")

// Sender delivers a single frame to one connection. Implementations apply
// their own write deadline; a failed send only affects that recipient.
type Sender interface {
	Send(data []byte) error
}

// Connection is one live real-time channel, scoped to one authenticated
// identity. A username may hold many simultaneous connections.
type Connection struct {
	Handle        string
	Username      string
	EstablishedAt time.Time
	sender        Sender
}

// NewConnection creates a Connection for a freshly authenticated channel.
func NewConnection(handle, username string, sender Sender) *Connection {
	return &Connection{
		Handle:        handle,
		Username:      username,
		EstablishedAt: time.Now(),
		sender:        sender,
	}
}

// Send delivers a frame to this connection.
func (c *Connection) Send(data []byte) error {
	return c.sender.Send(data)
}

// Registry is a concurrency-safe mapping of live connection handles to
// authenticated identities. The lock is only ever held for the duration of a
// map mutation, never across delivery I/O.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	online map[string]int // username -> live connection count
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		online: make(map[string]int),
	}
}

// Register inserts a connection. It reports whether the username just came
// online (its first live connection), and fails with ErrDuplicateConnection
// when the handle is already present.
func (r *Registry) Register(conn *Connection) (cameOnline bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn.Handle]; exists {
		return false, ErrDuplicateConnection
	}

	r.conns[conn.Handle] = conn
	r.online[conn.Username]++
	return r.online[conn.Username] == 1, nil
}

// Unregister atomically removes a handle and returns the username it was
// bound to. It is idempotent: a second call for the same handle reports
// ok=false and changes nothing. wentOffline reports whether this was the
// username's last live connection.
func (r *Registry) Unregister(handle string) (username string, wentOffline, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[handle]
	if !exists {
		return "", false, false
	}

	delete(r.conns, handle)
	r.online[conn.Username]--
	if r.online[conn.Username] <= 0 {
		delete(r.online, conn.Username)
		return conn.Username, true, true
	}
	return conn.Username, false, true
}

// SnapshotOnline returns a point-in-time consistent, sorted set of usernames
// with at least one live connection.
func (r *Registry) SnapshotOnline() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.online))
	for name := range r.online {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a consistent copy of all live connections. Fan-out code
// iterates the copy so the registry lock is never held during delivery.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
