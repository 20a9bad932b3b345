package fakebackend

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RevokedTokens remembers signed-out access tokens by jti until they would
// have expired anyway.
type RevokedTokens struct {
	clock   clockwork.Clock
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewRevokedTokens(clock clockwork.Clock) *RevokedTokens {
	return &RevokedTokens{clock: clock, revoked: make(map[string]time.Time)}
}

func (r *RevokedTokens) Add(jti string, exp time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = exp
}

func (r *RevokedTokens) IsRevoked(jti string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.revoked[jti]
	return ok
}

// Cleanup drops entries past their expiry.
func (r *RevokedTokens) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	for jti, exp := range r.revoked {
		if now.After(exp) {
			delete(r.revoked, jti)
		}
	}
}

func (r *RevokedTokens) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}
