// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package xmsg

import "errors"

var (
	// ErrInvalidSignature is returned for malformed or non-canonical signature fields.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrBadSignature is returned when a well-formed signature does not recover
	// to the expected signer.
	ErrBadSignature = errors.New("bad signature")

	// ErrDuplicateMessage is returned when a message tag was already consumed.
	ErrDuplicateMessage = errors.New("duplicate message")

	// ErrMalformedMessage is returned when an envelope does not parse or its
	// declared lengths do not match the bytes present.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrInsufficientDeposit is returned when a deposit does not exceed its cost.
	ErrInsufficientDeposit = errors.New("insufficient deposit")

	// ErrInsufficientFee is returned when the value sent does not cover the bus fee.
	ErrInsufficientFee = errors.New("insufficient fee")

	// ErrUnauthorizedSender is returned when a message does not come from the
	// remote contract on the remote chain.
	ErrUnauthorizedSender = errors.New("unauthorized sender")

	// ErrUnknownSelector is returned when no handler exists for a message selector.
	ErrUnknownSelector = errors.New("unknown selector")

	// ErrInsufficientBalance is returned when burning more wrapped tokens than are held.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientLocked is returned when a withdrawal exceeds the locked value.
	ErrInsufficientLocked = errors.New("insufficient locked value")
)
