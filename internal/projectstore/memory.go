package projectstore

import (
	"context"
	"maps"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Project
}

func NewMemory() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Project)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return Project{}, ErrNotFound
	}
	p.Files = maps.Clone(p.Files)
	return p, nil
}

func (s *MemoryStore) Put(_ context.Context, p Project) (Project, error) {
	p = normalize(p)
	p.Files = maps.Clone(p.Files)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p
	p.Files = maps.Clone(p.Files)
	return p, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.TrimSpace(id)
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) List(context.Context) ([]Project, error) {
	s.mu.RLock()
	out := make([]Project, 0, len(s.byID))
	for _, p := range s.byID {
		p.Files = nil
		out = append(out, p)
	}
	s.mu.RUnlock()
	sortProjects(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
