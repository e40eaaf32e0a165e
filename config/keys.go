// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"

	// Environment variable keys
	ConfigFileEnvKey = "CONFIG_FILE"

	// Top-level configuration keys
	LogLevelKey      = "log-level"
	LocalChainIDKey  = "local-chain-id"
	RemoteChainIDKey = "remote-chain-id"
	FeeBaseKey       = "fee-base"
	FeePerByteKey    = "fee-per-byte"
	DepositCostKey   = "deposit-cost"
	ReplayDBPathKey  = "replay-db-path"
	EchoPongKey      = "echo-pong"
	SigningKeyKey    = "signing-key"
)
