package kv

import (
	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in process memory; nothing expires
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a copy of the stored value
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	if val, found := s.cache.Get(key); found {
		return clone(val.([]byte)), true
	}
	return nil, false
}

// Set stores a copy of value
func (s *MemoryStore) Set(key string, value []byte) error {
	s.cache.Set(key, clone(value), gocache.NoExpiration)
	return nil
}

// Remove deletes a key; missing keys are not an error
func (s *MemoryStore) Remove(key string) error {
	s.cache.Delete(key)
	return nil
}
