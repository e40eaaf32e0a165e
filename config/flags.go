// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"github.com/spf13/pflag"
)

// BuildFlagSet declares every configuration key as a flag. Flags left unset
// do not override the config file or environment.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("xmsg", pflag.ContinueOnError)
	AddFlags(fs)
	return fs
}

// AddFlags declares the configuration keys on an existing flag set
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ConfigFileKey, "", "Path to a JSON configuration file")
	fs.String(LogLevelKey, defaultLogLevel, "Log level (debug, info, warn, error)")
	fs.Uint64(LocalChainIDKey, defaultLocalChainID, "Chain ID of the local endpoint")
	fs.Uint64(RemoteChainIDKey, defaultRemoteChainID, "Chain ID of the remote endpoint")
	fs.String(FeeBaseKey, defaultFeeBase, "Flat bus fee per message, in wei")
	fs.String(FeePerByteKey, defaultFeePerByte, "Bus fee per message byte, in wei")
	fs.String(DepositCostKey, defaultDepositCost, "Amount withheld from each deposit, in wei; 0 uses the bus fee")
	fs.String(ReplayDBPathKey, "", "SQLite file for consumed message tags; empty keeps them in memory")
	fs.Bool(EchoPongKey, false, "Answer every ping with a pong")
	fs.String(SigningKeyKey, "", "Hex secp256k1 key the local endpoint signs with; empty generates one")
}
