// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package replay

import (
	"sync"

	"github.com/luxfi/math/set"
	"github.com/luxfi/xmsg"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a Store that lives for the lifetime of the process
type MemoryStore struct {
	mu   sync.Mutex
	tags set.Set[xmsg.Tag]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tags: set.NewSet[xmsg.Tag](),
	}
}

func (s *MemoryStore) Has(tag xmsg.Tag) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags.Contains(tag), nil
}

func (s *MemoryStore) Add(tag xmsg.Tag) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tags.Contains(tag) {
		return false, nil
	}
	s.tags.Add(tag)
	return true, nil
}

func (s *MemoryStore) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags.Len(), nil
}

func (*MemoryStore) Close() error {
	return nil
}
