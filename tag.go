// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package xmsg

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TagGenerator derives uniqueness tags from a sender domain, a monotonic
// nonce and the payload hash. Tags from one generator never repeat.
type TagGenerator struct {
	mu     sync.Mutex
	domain common.Address
	nonce  uint64
}

// NewTagGenerator creates a generator for the given sender domain
func NewTagGenerator(domain common.Address) *TagGenerator {
	return &TagGenerator{domain: domain}
}

// Next returns the tag for payload and advances the nonce
func (g *TagGenerator) Next(payload []byte) Tag {
	g.mu.Lock()
	nonce := g.nonce
	g.nonce++
	g.mu.Unlock()

	return ComputeTag(g.domain, nonce, payload)
}

// Nonce returns the nonce the next tag will use
func (g *TagGenerator) Nonce() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nonce
}

// ComputeTag is keccak256(abi.encode(domain, nonce, keccak256(payload)))
func ComputeTag(domain common.Address, nonce uint64, payload []byte) Tag {
	payloadHash := crypto.Keccak256Hash(payload)
	// Static arguments of known types cannot fail to pack.
	b, _ := pack(tagArgs, domain, new(big.Int).SetUint64(nonce), [32]byte(payloadHash))
	return Tag(crypto.Keccak256Hash(b))
}
