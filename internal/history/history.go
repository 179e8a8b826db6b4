// Package history keeps the bounded, deduplicated list of past user prompts.
package history

import (
	"errors"
	"strings"
	"sync"

	"github.com/tandem-dev/tandem/internal/storage"
)

// Capacity is the maximum number of prompts retained.
const Capacity = 50

var storageKey = []string{"client", "prompt-history"}

// Store holds past prompts, most recent first, deduplicated by exact match,
// persisted through the key-value store.
type Store struct {
	mu      sync.Mutex
	store   *storage.Store
	prompts []string
}

// New creates a Store backed by kv and loads any persisted prompts. A store
// with nothing persisted yet starts empty.
func New(kv *storage.Store) (*Store, error) {
	s := &Store{store: kv}

	var prompts []string
	err := kv.Get(storageKey, &prompts)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if len(prompts) > Capacity {
		prompts = prompts[:Capacity]
	}
	s.prompts = prompts

	return s, nil
}

// Add records a prompt at the front of the history. An exact duplicate moves
// to the front instead of appearing twice. Empty prompts are ignored.
func (s *Store) Add(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]string, 0, len(s.prompts)+1)
	next = append(next, prompt)
	for _, p := range s.prompts {
		if p != prompt {
			next = append(next, p)
		}
	}
	if len(next) > Capacity {
		next = next[:Capacity]
	}
	s.prompts = next

	return s.store.Put(storageKey, s.prompts)
}

// All returns a copy of the history, most recent first.
func (s *Store) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Len returns the number of stored prompts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}
