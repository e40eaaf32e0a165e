// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package replay enforces that every message tag is accepted at most once.
// Consumed tags are kept forever; there is no eviction.
package replay

import (
	"fmt"

	"github.com/luxfi/xmsg"
	"go.uber.org/zap"
)

var _ xmsg.ReplayGuard = (*Guard)(nil)

// Store holds consumed tags
type Store interface {
	// Has reports whether tag was consumed
	Has(tag xmsg.Tag) (bool, error)

	// Add records tag and reports whether it was absent. The check and the
	// insert must be a single atomic step.
	Add(tag xmsg.Tag) (bool, error)

	// Len returns the number of consumed tags
	Len() (int, error)

	Close() error
}

// Guard is the replay guard owned by one decoding authority
type Guard struct {
	log   *zap.Logger
	store Store
}

// NewGuard creates a guard backed by store
func NewGuard(log *zap.Logger, store Store) *Guard {
	return &Guard{
		log:   log,
		store: store,
	}
}

// NewMemoryGuard creates a guard backed by a fresh in-memory store
func NewMemoryGuard(log *zap.Logger) *Guard {
	return NewGuard(log, NewMemoryStore())
}

// Check returns true if tag has not been consumed
func (g *Guard) Check(tag xmsg.Tag) (bool, error) {
	seen, err := g.store.Has(tag)
	if err != nil {
		return false, fmt.Errorf("failed to look up tag %s: %w", tag, err)
	}
	return !seen, nil
}

// Consume records tag, failing with xmsg.ErrDuplicateMessage if it was
// already consumed. Concurrent calls for one tag yield exactly one success.
func (g *Guard) Consume(tag xmsg.Tag) error {
	added, err := g.store.Add(tag)
	if err != nil {
		return fmt.Errorf("failed to record tag %s: %w", tag, err)
	}
	if !added {
		g.log.Debug("Rejected replayed tag", zap.Stringer("tag", tag))
		return fmt.Errorf("%w: tag %s", xmsg.ErrDuplicateMessage, tag)
	}
	return nil
}

// Len returns the number of consumed tags
func (g *Guard) Len() (int, error) {
	return g.store.Len()
}

// Close releases the underlying store
func (g *Guard) Close() error {
	return g.store.Close()
}
