package modules

import (
	"fmt"
	"sync"
)

// Store backs the `store` module: a process-wide key-value map shared
// across scripts (spec §5: "the store script module is process-wide and
// shared across scripts"). One instance must be constructed per Engine and
// reused across every RunScript call so `parallel: true` iterations observe
// each other's writes with last-writer-wins.
type Store struct {
	mu   *sync.Mutex
	data map[string]any
}

func NewStore() Store {
	return Store{mu: &sync.Mutex{}, data: make(map[string]any)}
}

func (s Store) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key]
}

func (s Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func (s Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

func (s Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]any)
}

func (s Store) Incr(key string) (int64, error) {
	return s.delta(key, 1)
}

func (s Store) Decr(key string) (int64, error) {
	return s.delta(key, -1)
}

func (s Store) delta(key string, by int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur int64
	switch v := s.data[key].(type) {
	case nil:
		cur = 0
	case int64:
		cur = v
	case float64:
		cur = int64(v)
	default:
		return 0, fmt.Errorf("store: %q does not hold a number", key)
	}
	cur += by
	s.data[key] = cur
	return cur, nil
}

func (s Store) Object() map[string]any {
	return map[string]any{
		"get":    s.Get,
		"set":    s.Set,
		"delete": s.Delete,
		"has":    s.Has,
		"keys":   s.Keys,
		"clear":  s.Clear,
		"incr":   s.Incr,
		"decr":   s.Decr,
	}
}
