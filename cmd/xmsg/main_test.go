// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/xmsg"
	"github.com/luxfi/xmsg/config"
	"github.com/luxfi/xmsg/replay"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestSigpackRoundTrip(t *testing.T) {
	require := require.New(t)

	signer, err := xmsg.GenerateLocalSigner()
	require.NoError(err)
	digest := common.HexToHash("0x2c5d9c2d7e0a1f6b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f70819203")

	compact := strings.TrimSpace(execute(t, "sigpack", "--key", signer.PrivateKeyHex(), "--digest", digest.Hex()))
	b, err := hexutil.Decode(compact)
	require.NoError(err)
	require.Len(b, xmsg.CompactSignatureLen)

	unpacked := execute(t, "sigunpack", "--compact", compact, "--digest", digest.Hex())
	require.Contains(unpacked, "signer: "+signer.Address().Hex())
}

func TestEnvelopeRoundTrip(t *testing.T) {
	signer, err := xmsg.GenerateLocalSigner()
	require.NoError(t, err)
	selector := xmsg.Selector{0xde, 0xad, 0xbe, 0xef}
	payload := []byte("cross-chain")

	for v := xmsg.VariantPlain; v <= xmsg.VariantUniqueMessage; v++ {
		t.Run(v.String(), func(t *testing.T) {
			require := require.New(t)

			enc := xmsg.NewEncoder(signer, common.Address{0x01})
			encoded, tag, err := encodeEnvelope(enc, v, selector, payload)
			require.NoError(err)

			dec := xmsg.NewDecoder(signer.Address(), replay.NewMemoryGuard(zap.NewNop()))
			msg, err := decodeEnvelope(dec, v, encoded)
			require.NoError(err)
			require.Equal(payload, msg.payload)
			require.Equal(tag, msg.tag)

			var out bytes.Buffer
			require.NoError(printMessage(&out, v, msg))
			require.Contains(out.String(), "payload: "+hexutil.Encode(payload))
		})
	}
}

func TestEncodeDecodeCommands(t *testing.T) {
	require := require.New(t)

	signer, err := xmsg.GenerateLocalSigner()
	require.NoError(err)

	encoded := execute(t, "encode",
		"--variant", xmsg.VariantSignedUniqueMessage.String(),
		"--payload", "0x0102",
		"--selector", "deadbeef",
		"--key", signer.PrivateKeyHex(),
	)
	var envelope string
	for _, line := range strings.Split(encoded, "\n") {
		if rest, ok := strings.CutPrefix(line, "envelope: "); ok {
			envelope = rest
		}
	}
	require.NotEmpty(envelope)

	decoded := execute(t, "decode",
		"--variant", xmsg.VariantSignedUniqueMessage.String(),
		"--data", envelope,
		"--signer", signer.Address().Hex(),
	)
	require.Contains(decoded, "selector: 0xdeadbeef")
	require.Contains(decoded, "payload: 0x0102")
}

func TestRunSimulation(t *testing.T) {
	require := require.New(t)

	fs := config.BuildFlagSet()
	require.NoError(fs.Parse([]string{
		"--" + config.EchoPongKey,
		"--" + config.ReplayDBPathKey, filepath.Join(t.TempDir(), "replay.db"),
		"--" + config.DepositCostKey, "1000000000000000",
	}))
	v, err := config.BuildViper(fs)
	require.NoError(err)
	cfg, err := config.NewConfig(v)
	require.NoError(err)

	amount := uint256.NewInt(1_000_000_000_000_000_000)
	var out bytes.Buffer
	require.NoError(runSimulation(cfg, zap.NewNop(), prometheus.NewRegistry(), amount, &out))

	output := out.String()
	require.Contains(output, "ping state: pong_received")
	require.Contains(output, "deposited 1000000000000000000, locked 1000000000000000000")
	require.Contains(output, "minted balance: 1000000000000000000")
	require.Contains(output, "withdrawn 500000000000000000, locked 500000000000000000")
	// ping, pong, deposit, withdraw
	require.Contains(output, "delivered 4, undelivered 0")
	// the remote endpoint consumed the ping and the deposit
	require.Contains(output, "remote consumed tags 2")
	require.NotContains(output, "rejected")
	require.Equal(4, strings.Count(output, ": accepted"), fmt.Sprintf("output:\n%s", output))
}
