package server

import (
	"sync"

	"github.com/brk3/habitlog/internal/storage"
)

type memStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(owner, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[owner+"/"+key], nil
}

func (m *memStore) Put(owner, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[owner+"/"+key] = value
	return nil
}

func (m *memStore) Close() error { return nil }

var _ storage.Documents = (*memStore)(nil)
