// Copyright (C) 2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"github.com/ethereum/go-ethereum/common/lru"
)

// LRUCache is a bounded read-through cache for facts that never change once
// observed, such as a consumed message tag.
type LRUCache[K comparable, V any] struct {
	cache *lru.Cache[K, V]
}

func NewLRUCache[K comparable, V any](size int) *LRUCache[K, V] {
	return &LRUCache[K, V]{
		cache: lru.NewCache[K, V](size),
	}
}

// Get returns the cached value for key, otherwise fetches it. A fetched value
// is cached only if keep reports true for it; a nil keep caches every value.
func (c *LRUCache[K, V]) Get(key K, fetchFunc func(K) (V, error), keep func(V) bool) (V, error) {
	if value, found := c.cache.Get(key); found {
		return value, nil
	}

	newValue, err := fetchFunc(key)
	if err != nil {
		var zero V
		return zero, err
	}
	if keep == nil || keep(newValue) {
		c.cache.Add(key, newValue)
	}
	return newValue, nil
}

// Add records value for key, evicting the least recently used entry when full
func (c *LRUCache[K, V]) Add(key K, value V) {
	c.cache.Add(key, value)
}

func (c *LRUCache[K, V]) Len() int {
	return c.cache.Len()
}
