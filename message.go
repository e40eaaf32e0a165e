// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package xmsg

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var errNoSigner = errors.New("no signer configured")

// ReplayGuard records consumed tags. Consume must atomically check and record
// tag, returning ErrDuplicateMessage if it was seen before.
type ReplayGuard interface {
	Consume(tag Tag) error
}

// Message is a decoded selector-carrying envelope
type Message struct {
	Tag      Tag
	Selector Selector
	Data     []byte
}

// Equal returns true if two messages are equal
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Tag == other.Tag &&
		m.Selector == other.Selector &&
		bytes.Equal(m.Data, other.Data)
}

// EncodePlain wraps payload with a length prefix
func EncodePlain(payload []byte) ([]byte, error) {
	return pack(plainArgs, payload)
}

// DecodePlain is the inverse of EncodePlain
func DecodePlain(data []byte) ([]byte, error) {
	values, err := unpack(plainArgs, data)
	if err != nil {
		return nil, err
	}
	return values[0].([]byte), nil
}

// EncodeUnique prepends tag to the plain encoding of payload
func EncodeUnique(payload []byte, tag Tag) ([]byte, error) {
	return pack(uniqueArgs, [32]byte(tag), payload)
}

// DecodeUnique parses a unique envelope and consumes its tag in guard
func DecodeUnique(data []byte, guard ReplayGuard) ([]byte, error) {
	values, err := unpack(uniqueArgs, data)
	if err != nil {
		return nil, err
	}
	if err := guard.Consume(Tag(values[0].([32]byte))); err != nil {
		return nil, err
	}
	return values[1].([]byte), nil
}

// SignedDigest is the digest signed in a Signed envelope
func SignedDigest(payload []byte) common.Hash {
	return crypto.Keccak256Hash(payload)
}

// EncodeSigned signs keccak256(payload) and prepends the compact signature
func EncodeSigned(payload []byte, signer Signer) ([]byte, error) {
	compact, err := sign(signer, SignedDigest(payload))
	if err != nil {
		return nil, err
	}
	return pack(signedArgs, compact.words(), payload)
}

// DecodeSigned parses a signed envelope and checks that it was signed by
// remoteSigner.
func DecodeSigned(data []byte, remoteSigner common.Address) ([]byte, error) {
	values, err := unpack(signedArgs, data)
	if err != nil {
		return nil, err
	}
	payload := values[1].([]byte)
	if err := verify(SignedDigest(payload), values[0].([2][32]byte), remoteSigner); err != nil {
		return nil, err
	}
	return payload, nil
}

// SignedUniqueDigest is the digest signed in a SignedUnique envelope. It binds
// the tag to the payload.
func SignedUniqueDigest(tag Tag, payload []byte) common.Hash {
	return crypto.Keccak256Hash(tag[:], payload)
}

// EncodeSignedUnique signs keccak256(tag ++ payload)
func EncodeSignedUnique(payload []byte, tag Tag, signer Signer) ([]byte, error) {
	compact, err := sign(signer, SignedUniqueDigest(tag, payload))
	if err != nil {
		return nil, err
	}
	return pack(signedUniqueArgs, [32]byte(tag), compact.words(), payload)
}

// DecodeSignedUnique verifies the signature before consuming the tag, so a
// message with a bad signature never uses up its replay slot.
func DecodeSignedUnique(data []byte, remoteSigner common.Address, guard ReplayGuard) ([]byte, error) {
	values, err := unpack(signedUniqueArgs, data)
	if err != nil {
		return nil, err
	}
	tag := Tag(values[0].([32]byte))
	payload := values[2].([]byte)
	if err := verify(SignedUniqueDigest(tag, payload), values[1].([2][32]byte), remoteSigner); err != nil {
		return nil, err
	}
	if err := guard.Consume(tag); err != nil {
		return nil, err
	}
	return payload, nil
}

// SignedUniqueMessageDigest is keccak256(tag ++ selector ++ data)
func SignedUniqueMessageDigest(tag Tag, selector Selector, data []byte) common.Hash {
	return crypto.Keccak256Hash(tag[:], selector[:], data)
}

// EncodeSignedUniqueMessage is EncodeSignedUnique with a routing selector
func EncodeSignedUniqueMessage(selector Selector, data []byte, tag Tag, signer Signer) ([]byte, error) {
	compact, err := sign(signer, SignedUniqueMessageDigest(tag, selector, data))
	if err != nil {
		return nil, err
	}
	return pack(signedUniqueMessageArgs, [32]byte(tag), compact.words(), [4]byte(selector), data)
}

// DecodeSignedUniqueMessage is DecodeSignedUnique with a routing selector
func DecodeSignedUniqueMessage(data []byte, remoteSigner common.Address, guard ReplayGuard) (*Message, error) {
	values, err := unpack(signedUniqueMessageArgs, data)
	if err != nil {
		return nil, err
	}
	msg := &Message{
		Tag:      Tag(values[0].([32]byte)),
		Selector: Selector(values[2].([4]byte)),
		Data:     values[3].([]byte),
	}
	digest := SignedUniqueMessageDigest(msg.Tag, msg.Selector, msg.Data)
	if err := verify(digest, values[1].([2][32]byte), remoteSigner); err != nil {
		return nil, err
	}
	if err := guard.Consume(msg.Tag); err != nil {
		return nil, err
	}
	return msg, nil
}

// EncodeUniqueMessage is the unsigned selector envelope
func EncodeUniqueMessage(selector Selector, data []byte, tag Tag) ([]byte, error) {
	return pack(uniqueMessageArgs, [32]byte(tag), [4]byte(selector), data)
}

// DecodeUniqueMessage parses an unsigned selector envelope and consumes its tag
func DecodeUniqueMessage(data []byte, guard ReplayGuard) (*Message, error) {
	values, err := unpack(uniqueMessageArgs, data)
	if err != nil {
		return nil, err
	}
	msg := &Message{
		Tag:      Tag(values[0].([32]byte)),
		Selector: Selector(values[1].([4]byte)),
		Data:     values[2].([]byte),
	}
	if err := guard.Consume(msg.Tag); err != nil {
		return nil, err
	}
	return msg, nil
}

// PeekTag returns the tag of a unique envelope without decoding or consuming it
func PeekTag(data []byte) (Tag, error) {
	if len(data) < TagLen {
		return Tag{}, fmt.Errorf("%w: %d bytes is too short for a tag", ErrMalformedMessage, len(data))
	}
	return Tag(data[:TagLen]), nil
}

// PeekSelector returns the selector of a selector-carrying envelope so that a
// receiver can route it before authenticating the data.
func PeekSelector(data []byte, variant Variant) (Selector, error) {
	var offset int
	switch variant {
	case VariantUniqueMessage:
		offset = 32
	case VariantSignedUniqueMessage:
		offset = 32 + 64
	default:
		return Selector{}, fmt.Errorf("%w: %s envelopes carry no selector", ErrMalformedMessage, variant)
	}
	if len(data) < offset+32 {
		return Selector{}, fmt.Errorf("%w: %d bytes is too short for a selector", ErrMalformedMessage, len(data))
	}
	return Selector(data[offset : offset+SelectorLen]), nil
}

func sign(signer Signer, digest common.Hash) (CompactSignature, error) {
	if signer == nil {
		return CompactSignature{}, errNoSigner
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return CompactSignature{}, err
	}
	return EncodeCompact(sig)
}

func verify(digest common.Hash, words [2][32]byte, expected common.Address) error {
	sig, err := DecodeCompact(CompactSignature{R: words[0], YParityAndS: words[1]})
	if err != nil {
		return err
	}
	recovered, err := RecoverAddress(digest, sig)
	if err != nil {
		return err
	}
	if recovered != expected {
		return fmt.Errorf("%w: recovered %s, expected %s", ErrBadSignature, recovered, expected)
	}
	return nil
}
