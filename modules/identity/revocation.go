package identity

import (
	"sync"
	"time"
)

// revocationList is an in-memory denylist of token IDs. Entries expire with
// the token they shadow, so the list stays bounded by the number of logouts
// inside one token lifetime.
type revocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time // token ID -> token expiry
}

func newRevocationList() *revocationList {
	return &revocationList{
		entries: make(map[string]time.Time),
	}
}

// Add records a token ID as revoked until its expiry.
func (l *revocationList) Add(tokenID string, expiry time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked()
	l.entries[tokenID] = expiry
}

// Contains reports whether a token ID is currently revoked.
func (l *revocationList) Contains(tokenID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, ok := l.entries[tokenID]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(l.entries, tokenID)
		return false
	}
	return true
}

// sweepLocked drops expired entries. Caller holds the lock.
func (l *revocationList) sweepLocked() {
	now := time.Now()
	for id, expiry := range l.entries {
		if now.After(expiry) {
			delete(l.entries, id)
		}
	}
}
