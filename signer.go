// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package xmsg

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var _ Signer = (*LocalSigner)(nil)

// Signer signs 32 byte digests with a secp256k1 key
type Signer interface {
	Sign(digest common.Hash) (Signature, error)

	// Address returns the address signatures recover to
	Address() common.Address
}

// LocalSigner signs with an in-process private key
type LocalSigner struct {
	sk      *ecdsa.PrivateKey
	address common.Address
}

// NewLocalSigner creates a new local signer
func NewLocalSigner(sk *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		sk:      sk,
		address: crypto.PubkeyToAddress(sk.PublicKey),
	}
}

// GenerateLocalSigner creates a local signer with a fresh random key
func GenerateLocalSigner() (*LocalSigner, error) {
	sk, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewLocalSigner(sk), nil
}

// LocalSignerFromHex creates a local signer from a hex encoded private key,
// with or without a 0x prefix
func LocalSignerFromHex(key string) (*LocalSigner, error) {
	sk, err := crypto.HexToECDSA(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return NewLocalSigner(sk), nil
}

func (s *LocalSigner) Sign(digest common.Hash) (Signature, error) {
	b, err := crypto.Sign(digest[:], s.sk)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to sign digest: %w", err)
	}
	return SignatureFromBytes(b)
}

func (s *LocalSigner) Address() common.Address {
	return s.address
}

// PublicKey returns the uncompressed public key
func (s *LocalSigner) PublicKey() []byte {
	return crypto.FromECDSAPub(&s.sk.PublicKey)
}

// PrivateKeyHex returns the private key as hex without a 0x prefix
func (s *LocalSigner) PrivateKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSA(s.sk))
}

// RecoverAddress returns the address of the key that produced sig over digest
func RecoverAddress(digest common.Hash, sig Signature) (common.Address, error) {
	pub, err := crypto.SigToPub(digest[:], sig.Bytes())
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// AddressFromPublicKey derives the address of an uncompressed or compressed
// secp256k1 public key.
func AddressFromPublicKey(pub []byte) (common.Address, error) {
	var (
		pk  *ecdsa.PublicKey
		err error
	)
	if len(pub) == 33 {
		pk, err = crypto.DecompressPubkey(pub)
	} else {
		pk, err = crypto.UnmarshalPubkey(pub)
	}
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pk), nil
}
