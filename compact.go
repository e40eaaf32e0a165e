// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package xmsg

import "fmt"

const parityBit = 0x80

// EncodeCompact packs sig into its EIP-2098 form. S must be in low-s form so
// that its top bit is free to carry the y-parity. V may be 0, 1, 27 or 28;
// only the parity is kept, so DecodeCompact returns V as 0 or 1. Use
// Signature.LegacyV to get 27 or 28 back.
func EncodeCompact(sig Signature) (CompactSignature, error) {
	if sig.S[0]&parityBit != 0 {
		return CompactSignature{}, fmt.Errorf("%w: s is not in low-s form", ErrInvalidSignature)
	}
	yParity, err := NormalizeV(sig.V)
	if err != nil {
		return CompactSignature{}, err
	}

	c := CompactSignature{
		R:           sig.R,
		YParityAndS: sig.S,
	}
	if yParity == 1 {
		c.YParityAndS[0] |= parityBit
	}
	return c, nil
}

// DecodeCompact unpacks an EIP-2098 signature. The returned V is the y-parity.
func DecodeCompact(c CompactSignature) (Signature, error) {
	sig := Signature{
		R: c.R,
		S: c.YParityAndS,
	}
	if sig.S[0]&parityBit != 0 {
		sig.V = 1
		sig.S[0] &^= parityBit
	}

	if sig.R == ([32]byte{}) {
		return Signature{}, fmt.Errorf("%w: r is zero", ErrInvalidSignature)
	}
	if sig.S == ([32]byte{}) {
		return Signature{}, fmt.Errorf("%w: s is zero", ErrInvalidSignature)
	}
	return sig, nil
}
