package config

import "time"

type CacheConfig interface {
	GetStaleTime() time.Duration
	GetGCTime() time.Duration
	GetQueryRetries() int
	GetMutationRetries() int
	GetRefetchOnWindowFocus() bool
}

type Cache struct{}

var _ CacheConfig = Cache{}

func (Cache) GetStaleTime() time.Duration {
	return 30 * time.Second
}

func (Cache) GetGCTime() time.Duration {
	return 30 * time.Minute
}

func (Cache) GetQueryRetries() int {
	return 3
}

func (Cache) GetMutationRetries() int {
	return 1
}

// GetRefetchOnWindowFocus defaults to false.
func (Cache) GetRefetchOnWindowFocus() bool {
	return false
}
