package storage

import (
	"context"
	"sync"
)

// Memory keeps every profile in a process-local map.
type Memory struct {
	mu    sync.RWMutex
	items map[string]map[string]string
	quota int
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]map[string]string), quota: DefaultQuota}
}

// WithQuota changes the per-item quota; 0 disables it.
func (m *Memory) WithQuota(quota int) *Memory {
	m.quota = quota
	return m
}

func (m *Memory) Scope(profileID string) Storage {
	return &memoryScope{m: m, profile: profileID}
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func (m *Memory) Close() error {
	return nil
}

type memoryScope struct {
	m       *Memory
	profile string
}

func (s *memoryScope) GetItem(_ context.Context, key string) (string, bool, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	v, ok := s.m.items[s.profile][key]
	return v, ok, nil
}

func (s *memoryScope) SetItem(_ context.Context, key, value string) error {
	if err := checkQuota(value, s.m.quota); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	slot, ok := s.m.items[s.profile]
	if !ok {
		slot = make(map[string]string)
		s.m.items[s.profile] = slot
	}
	slot[key] = value
	return nil
}

func (s *memoryScope) RemoveItem(_ context.Context, key string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.items[s.profile], key)
	return nil
}
