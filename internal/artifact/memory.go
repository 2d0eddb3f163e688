package artifact

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, buildID, path string, content []byte) error {
	if err := checkKey(buildID, path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[objectKey(buildID, path)] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, buildID, path string) ([]byte, error) {
	if err := checkKey(buildID, path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[objectKey(buildID, path)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, buildID string) ([]string, error) {
	if strings.TrimSpace(buildID) == "" {
		return nil, fmt.Errorf("build_id is required")
	}
	prefix := strings.TrimSpace(buildID) + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetURL returns a path under the gateway's artifact route; the memory store
// has no external address.
func (s *MemoryStore) GetURL(_ context.Context, buildID, path string) (string, error) {
	if err := checkKey(buildID, path); err != nil {
		return "", err
	}
	return "/artifacts/" + objectKey(buildID, path), nil
}
