// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package replay

import (
	"crypto/rand"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/xmsg"
)

func randomTag(t *testing.T) xmsg.Tag {
	var tag xmsg.Tag
	_, err := rand.Read(tag[:])
	require.NoError(t, err)
	return tag
}

func TestGuardConsume(t *testing.T) {
	require := require.New(t)

	g := NewMemoryGuard(zap.NewNop())
	tag := randomTag(t)

	fresh, err := g.Check(tag)
	require.NoError(err)
	require.True(fresh)

	require.NoError(g.Consume(tag))

	fresh, err = g.Check(tag)
	require.NoError(err)
	require.False(fresh)

	err = g.Consume(tag)
	require.ErrorIs(err, xmsg.ErrDuplicateMessage)

	require.NoError(g.Consume(randomTag(t)))
	n, err := g.Len()
	require.NoError(err)
	require.Equal(2, n)
}

func testConcurrentConsume(t *testing.T, g *Guard) {
	const racers = 32

	tag := randomTag(t)
	var (
		wg         sync.WaitGroup
		successes  atomic.Int32
		duplicates atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := g.Consume(tag)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, xmsg.ErrDuplicateMessage):
				duplicates.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), successes.Load())
	require.Equal(t, int32(racers-1), duplicates.Load())
}

func TestGuardConcurrentConsume(t *testing.T) {
	testConcurrentConsume(t, NewMemoryGuard(zap.NewNop()))
}

func TestMemoryStore(t *testing.T) {
	require := require.New(t)

	s := NewMemoryStore()
	tag := randomTag(t)

	has, err := s.Has(tag)
	require.NoError(err)
	require.False(has)

	added, err := s.Add(tag)
	require.NoError(err)
	require.True(added)

	added, err = s.Add(tag)
	require.NoError(err)
	require.False(added)

	has, err = s.Has(tag)
	require.NoError(err)
	require.True(has)

	n, err := s.Len()
	require.NoError(err)
	require.Equal(1, n)
	require.NoError(s.Close())
}
