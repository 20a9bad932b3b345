// Package storage defines the key/value stores the portal keeps client state
// in: a session-scoped store for the participant session and a persistent
// store for the signed-in user's profile.
package storage

import (
	"context"
	"encoding/json"

	"github.com/jrsteele09/go-contest-portal/internal/errors"
)

// Store is a string keyed value store.
// Get returns errors.ErrNotFound for missing keys; Remove of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// GetJSON decodes the value stored under key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(errors.ErrInvalidRecord, "[storage.GetJSON] %s: %v", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "[storage.SetJSON] marshal %s", key)
	}
	return s.Set(ctx, key, raw)
}
