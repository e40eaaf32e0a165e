// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap/zapcore"

	"github.com/luxfi/xmsg"
	"github.com/luxfi/xmsg/relayer"
)

const (
	defaultLogLevel      = "info"
	defaultLocalChainID  = 0x5afd
	defaultRemoteChainID = 1
	defaultFeeBase       = "1000"
	defaultFeePerByte    = "10"
	defaultDepositCost   = "0"
)

var errSameChain = errors.New("local and remote chain IDs must differ")

// Config is the configuration of a simulated endpoint pair
type Config struct {
	LogLevel      string `mapstructure:"log-level" json:"log-level"`
	LocalChainID  uint64 `mapstructure:"local-chain-id" json:"local-chain-id"`
	RemoteChainID uint64 `mapstructure:"remote-chain-id" json:"remote-chain-id"`
	FeeBase       string `mapstructure:"fee-base" json:"fee-base"`
	FeePerByte    string `mapstructure:"fee-per-byte" json:"fee-per-byte"`
	DepositCost   string `mapstructure:"deposit-cost" json:"deposit-cost"`
	ReplayDBPath  string `mapstructure:"replay-db-path" json:"replay-db-path"`
	EchoPong      bool   `mapstructure:"echo-pong" json:"echo-pong"`
	SigningKey    string `mapstructure:"signing-key" json:"signing-key"`

	// Set by Validate
	feeBase     *uint256.Int
	feePerByte  *uint256.Int
	depositCost *uint256.Int
	signer      *xmsg.LocalSigner
}

// Validate checks every field and parses the amounts and signing key
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid %s: %w", LogLevelKey, err)
	}
	if c.LocalChainID == c.RemoteChainID {
		return errSameChain
	}

	var err error
	if c.feeBase, err = parseAmount(FeeBaseKey, c.FeeBase); err != nil {
		return err
	}
	if c.feePerByte, err = parseAmount(FeePerByteKey, c.FeePerByte); err != nil {
		return err
	}
	if c.depositCost, err = parseAmount(DepositCostKey, c.DepositCost); err != nil {
		return err
	}

	if c.SigningKey == "" {
		c.signer = nil
		return nil
	}
	if c.signer, err = xmsg.LocalSignerFromHex(c.SigningKey); err != nil {
		return fmt.Errorf("invalid %s: %w", SigningKeyKey, err)
	}
	return nil
}

// BusConfig returns the fee schedule of the message bus
func (c *Config) BusConfig() relayer.Config {
	return relayer.Config{
		FeeBase:    c.feeBase,
		FeePerByte: c.feePerByte,
	}
}

// GetDepositCost returns the parsed deposit cost. Zero means the bus fee.
func (c *Config) GetDepositCost() *uint256.Int {
	return c.depositCost
}

// GetSigner returns the configured signer, or nil if none is configured
func (c *Config) GetSigner() *xmsg.LocalSigner {
	return c.signer
}

func parseAmount(key, value string) (*uint256.Int, error) {
	if value == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return amount, nil
}
