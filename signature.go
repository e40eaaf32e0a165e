// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package xmsg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// SignatureLen is the length of a recoverable [R || S || V] signature
	SignatureLen = 65

	// CompactSignatureLen is the length of an EIP-2098 compact signature
	CompactSignatureLen = 64

	// legacyVOffset converts a y-parity into the pre-EIP-155 27/28 form
	legacyVOffset = 27
)

// Signature is a recoverable secp256k1 signature.
//
// V always holds the y-parity (0 or 1). The legacy 27/28 form is accepted by
// NormalizeV and produced by LegacyV, and nowhere else.
type Signature struct {
	R [32]byte
	S [32]byte
	V uint8
}

// NormalizeV maps a recovery id in either the 0/1 or the 27/28 convention to
// the y-parity.
func NormalizeV(v uint8) (uint8, error) {
	switch v {
	case 0, 1:
		return v, nil
	case legacyVOffset, legacyVOffset + 1:
		return v - legacyVOffset, nil
	default:
		return 0, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, v)
	}
}

// LegacyV returns V in the 27/28 convention
func (s Signature) LegacyV() uint8 {
	return s.V + legacyVOffset
}

// Bytes returns the 65 byte [R || S || V] form with V as the y-parity
func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureLen)
	copy(b[:32], s.R[:])
	copy(b[32:64], s.S[:])
	b[64] = s.V
	return b
}

func (s Signature) String() string {
	return hexutil.Encode(s.Bytes())
}

// SignatureFromBytes parses a 65 byte [R || S || V] signature. V may use
// either recovery id convention.
func SignatureFromBytes(b []byte) (Signature, error) {
	if len(b) != SignatureLen {
		return Signature{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, SignatureLen, len(b))
	}
	v, err := NormalizeV(b[64])
	if err != nil {
		return Signature{}, err
	}
	sig := Signature{V: v}
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:64])
	return sig, nil
}

// CompactSignature is the EIP-2098 form of a Signature: the y-parity is
// folded into the top bit of S.
type CompactSignature struct {
	R           [32]byte
	YParityAndS [32]byte
}

// Bytes returns the 64 byte wire form
func (c CompactSignature) Bytes() []byte {
	b := make([]byte, CompactSignatureLen)
	copy(b[:32], c.R[:])
	copy(b[32:], c.YParityAndS[:])
	return b
}

func (c CompactSignature) String() string {
	return hexutil.Encode(c.Bytes())
}

// words returns the signature as the ABI bytes32[2] value
func (c CompactSignature) words() [2][32]byte {
	return [2][32]byte{c.R, c.YParityAndS}
}

// CompactSignatureFromBytes parses the 64 byte wire form
func CompactSignatureFromBytes(b []byte) (CompactSignature, error) {
	if len(b) != CompactSignatureLen {
		return CompactSignature{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, CompactSignatureLen, len(b))
	}
	var c CompactSignature
	copy(c.R[:], b[:32])
	copy(c.YParityAndS[:], b[32:])
	return c, nil
}
