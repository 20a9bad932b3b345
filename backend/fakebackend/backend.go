// Package fakebackend is an in-memory implementation of the hosted backend
// used by the development server and by tests.
package fakebackend

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTTL        = time.Hour
	DefaultSessionDuration = 2 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

type Backend struct {
	secret          []byte
	clock           clockwork.Clock
	tokenTTL        time.Duration
	sessionDuration time.Duration
	bcryptCost      int
	revoked         *RevokedTokens

	mu           sync.RWMutex
	contests     map[string]*Contest       // by contest code
	participants map[string][]*Participant // by contest ID
	users        map[string]*User          // by email
	userIDs      map[string]string         // user ID to email
	resources    map[string]*resource
}

type Option func(*Backend)

func WithClock(clock clockwork.Clock) Option {
	return func(b *Backend) {
		b.clock = clock
	}
}

func WithTokenTTL(d time.Duration) Option {
	return func(b *Backend) {
		b.tokenTTL = d
	}
}

// WithSessionDuration sets the participant session length reported to clients.
func WithSessionDuration(d time.Duration) Option {
	return func(b *Backend) {
		b.sessionDuration = d
	}
}

// WithBcryptCost lowers the hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(b *Backend) {
		b.bcryptCost = cost
	}
}

func New(secret []byte, options ...Option) (*Backend, error) {
	if len(secret) == 0 {
		return nil, errors.New("[fakebackend.New] signing secret is required")
	}

	b := &Backend{
		secret:          secret,
		clock:           clockwork.NewRealClock(),
		tokenTTL:        DefaultTokenTTL,
		sessionDuration: DefaultSessionDuration,
		bcryptCost:      bcrypt.DefaultCost,
		contests:        make(map[string]*Contest),
		participants:    make(map[string][]*Participant),
		users:           make(map[string]*User),
		userIDs:         make(map[string]string),
		resources:       make(map[string]*resource),
	}
	for _, opt := range options {
		opt(b)
	}
	b.revoked = NewRevokedTokens(b.clock)
	return b, nil
}

func (b *Backend) Clock() clockwork.Clock {
	return b.clock
}

// Run purges expired revocations until ctx is done.
func (b *Backend) Run(ctx context.Context) {
	ticker := b.clock.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			b.revoked.Cleanup()
		}
	}
}

func (b *Backend) hash(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), b.bcryptCost)
	return string(h), err
}

func checkHash(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
