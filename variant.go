// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package xmsg

import "fmt"

// Variant names an envelope shape
type Variant uint8

const (
	VariantPlain Variant = iota
	VariantUnique
	VariantSigned
	VariantSignedUnique
	VariantSignedUniqueMessage
	VariantUniqueMessage
)

var variantNames = map[Variant]string{
	VariantPlain:               "plain",
	VariantUnique:              "unique",
	VariantSigned:              "signed",
	VariantSignedUnique:        "signed-unique",
	VariantSignedUniqueMessage: "signed-unique-message",
	VariantUniqueMessage:       "unique-message",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return "unknown"
}

// ParseVariant parses a variant name as returned by Variant.String
func ParseVariant(name string) (Variant, error) {
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown envelope variant %q", name)
}

// Signed reports whether the variant carries a signature
func (v Variant) Signed() bool {
	return v == VariantSigned || v == VariantSignedUnique || v == VariantSignedUniqueMessage
}

// Unique reports whether the variant carries a replay tag
func (v Variant) Unique() bool {
	return v != VariantPlain && v != VariantSigned
}

// EncodedLength returns the exact envelope size for a payload (or, for
// selector variants, data) of n bytes.
func EncodedLength(v Variant, n int) int {
	// offset word + length word + padded body
	dynamic := 32 + 32 + ceil32(n)
	switch v {
	case VariantPlain:
		return dynamic
	case VariantUnique:
		return 32 + dynamic
	case VariantSigned:
		return 64 + dynamic
	case VariantSignedUnique:
		return 32 + 64 + dynamic
	case VariantSignedUniqueMessage:
		return 32 + 64 + 32 + dynamic
	case VariantUniqueMessage:
		return 32 + 32 + dynamic
	default:
		return 0
	}
}
