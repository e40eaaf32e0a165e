// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package xmsg

import (
	"github.com/ethereum/go-ethereum/common"
)

// Encoder produces envelopes for one sender, minting a fresh tag for every
// unique envelope.
type Encoder struct {
	signer Signer
	tags   *TagGenerator
}

// NewEncoder creates an encoder for the sender at domain. signer may be nil
// when only unsigned envelopes are produced.
func NewEncoder(signer Signer, domain common.Address) *Encoder {
	return &Encoder{
		signer: signer,
		tags:   NewTagGenerator(domain),
	}
}

// Signer returns the encoder's signer, or nil
func (e *Encoder) Signer() Signer {
	return e.signer
}

func (e *Encoder) Plain(payload []byte) ([]byte, error) {
	return EncodePlain(payload)
}

func (e *Encoder) Unique(payload []byte) ([]byte, Tag, error) {
	tag := e.tags.Next(payload)
	b, err := EncodeUnique(payload, tag)
	return b, tag, err
}

func (e *Encoder) Signed(payload []byte) ([]byte, error) {
	return EncodeSigned(payload, e.signer)
}

func (e *Encoder) SignedUnique(payload []byte) ([]byte, Tag, error) {
	tag := e.tags.Next(payload)
	b, err := EncodeSignedUnique(payload, tag, e.signer)
	return b, tag, err
}

func (e *Encoder) SignedUniqueMessage(selector Selector, data []byte) ([]byte, Tag, error) {
	tag := e.tags.Next(append(selector[:], data...))
	b, err := EncodeSignedUniqueMessage(selector, data, tag, e.signer)
	return b, tag, err
}

func (e *Encoder) UniqueMessage(selector Selector, data []byte) ([]byte, Tag, error) {
	tag := e.tags.Next(append(selector[:], data...))
	b, err := EncodeUniqueMessage(selector, data, tag)
	return b, tag, err
}

// Decoder authenticates envelopes from one remote signer and enforces
// uniqueness against its own guard.
type Decoder struct {
	remoteSigner common.Address
	guard        ReplayGuard
}

// NewDecoder creates a decoder. remoteSigner is fixed for its lifetime.
func NewDecoder(remoteSigner common.Address, guard ReplayGuard) *Decoder {
	return &Decoder{
		remoteSigner: remoteSigner,
		guard:        guard,
	}
}

// RemoteSigner returns the address signed envelopes must recover to
func (d *Decoder) RemoteSigner() common.Address {
	return d.remoteSigner
}

func (d *Decoder) Plain(data []byte) ([]byte, error) {
	return DecodePlain(data)
}

func (d *Decoder) Unique(data []byte) ([]byte, error) {
	return DecodeUnique(data, d.guard)
}

func (d *Decoder) Signed(data []byte) ([]byte, error) {
	return DecodeSigned(data, d.remoteSigner)
}

func (d *Decoder) SignedUnique(data []byte) ([]byte, error) {
	return DecodeSignedUnique(data, d.remoteSigner, d.guard)
}

func (d *Decoder) SignedUniqueMessage(data []byte) (*Message, error) {
	return DecodeSignedUniqueMessage(data, d.remoteSigner, d.guard)
}

func (d *Decoder) UniqueMessage(data []byte) (*Message, error) {
	return DecodeUniqueMessage(data, d.guard)
}
