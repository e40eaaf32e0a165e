// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/xmsg"
	"github.com/luxfi/xmsg/config"
	"github.com/luxfi/xmsg/endpoint"
	"github.com/luxfi/xmsg/relayer"
	"github.com/luxfi/xmsg/replay"
	"github.com/luxfi/xmsg/utils"
)

const amountFlag = "amount"

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run ping/pong and a deposit round trip between two endpoints",
	Long: `Deploy a signing endpoint and a verifying endpoint on a mock message bus,
then ping, deposit, mint, burn and withdraw, delivering every queued message.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, err := config.BuildViper(cmd.Flags())
		if err != nil {
			return fmt.Errorf("couldn't configure flags: %w", err)
		}
		cfg, err := config.NewConfig(v)
		if err != nil {
			return fmt.Errorf("couldn't build config: %w", err)
		}
		amount, err := uint256.FromDecimal(v.GetString(amountFlag))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", amountFlag, err)
		}
		logger, err := utils.NewLogger("xmsg", cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		return runSimulation(cfg, logger, prometheus.NewRegistry(), amount, cmd.OutOrStdout())
	},
}

func init() {
	config.AddFlags(simulateCmd.Flags())
	simulateCmd.Flags().String(amountFlag, "1000000000000000000", "Amount to bridge, in wei")
}

func runSimulation(
	cfg config.Config,
	logger *zap.Logger,
	registerer prometheus.Registerer,
	amount *uint256.Int,
	out io.Writer,
) error {
	signer := cfg.GetSigner()
	if signer == nil {
		var err error
		if signer, err = xmsg.GenerateLocalSigner(); err != nil {
			return err
		}
	}

	// Both endpoints are deployed by the signer's account
	owner := signer.Address()
	localAddress := crypto.CreateAddress(owner, 0)
	remoteAddress := crypto.CreateAddress(owner, 1)

	guard := replay.NewMemoryGuard(logger)
	if cfg.ReplayDBPath != "" {
		store, err := replay.OpenSQLiteStore(cfg.ReplayDBPath)
		if err != nil {
			return err
		}
		guard = replay.NewGuard(logger, store)
	}
	defer guard.Close()

	bus := relayer.NewMockMessageBus(logger.Named("bus"), registerer, cfg.BusConfig())
	local, err := endpoint.New(endpoint.Config{
		LocalChainID:   cfg.LocalChainID,
		RemoteChainID:  cfg.RemoteChainID,
		Address:        localAddress,
		RemoteContract: remoteAddress,
		Signer:         signer,
		DepositCost:    cfg.GetDepositCost(),
	}, bus, endpoint.WithLogger(logger.Named("local")), endpoint.WithRegisterer(registerer))
	if err != nil {
		return err
	}
	remote, err := endpoint.New(endpoint.Config{
		LocalChainID:          cfg.RemoteChainID,
		RemoteChainID:         cfg.LocalChainID,
		Address:               remoteAddress,
		RemoteContract:        localAddress,
		RemoteSignerPublicKey: signer.PublicKey(),
		EchoPong:              cfg.EchoPong,
	}, bus,
		endpoint.WithLogger(logger.Named("remote")),
		endpoint.WithRegisterer(registerer),
		endpoint.WithReplayGuard(guard),
	)
	if err != nil {
		return err
	}
	bus.Register(localAddress, cfg.LocalChainID, local)
	bus.Register(remoteAddress, cfg.RemoteChainID, remote)

	remote.Subscribe(func(e endpoint.Event) {
		if e.Kind == endpoint.EventRejected {
			fmt.Fprintf(out, "remote rejected message: %v\n", e.Err)
		}
	})

	fmt.Fprintf(out, "local endpoint %s on chain %d\n", localAddress, cfg.LocalChainID)
	fmt.Fprintf(out, "remote endpoint %s on chain %d\n", remoteAddress, cfg.RemoteChainID)

	var randomness [32]byte
	if _, err := rand.Read(randomness[:]); err != nil {
		return err
	}
	fee, err := local.Ping(randomness, oneEther())
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	fmt.Fprintf(out, "ping sent, fee %s\n", fee.Dec())
	deliver(bus, out)
	fmt.Fprintf(out, "ping state: %s\n", local.PingState(randomness))

	value := new(uint256.Int).Add(local.DepositCost(), amount)
	deposited, err := local.Deposit(owner, owner, value)
	if err != nil {
		return fmt.Errorf("deposit failed: %w", err)
	}
	fmt.Fprintf(out, "deposited %s, locked %s\n", deposited.Dec(), local.Locked().Dec())
	deliver(bus, out)
	fmt.Fprintf(out, "minted balance: %s\n", remote.Token().BalanceOf(owner).Dec())

	half := new(uint256.Int).Rsh(deposited, 1)
	if !half.IsZero() {
		if err := remote.Burn(owner, owner, half, oneEther()); err != nil {
			return fmt.Errorf("burn failed: %w", err)
		}
		fmt.Fprintf(out, "burned %s\n", half.Dec())
		deliver(bus, out)
	}
	fmt.Fprintf(out, "withdrawn %s, locked %s\n", local.Withdrawn(owner).Dec(), local.Locked().Dec())

	consumed, err := guard.Len()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "delivered %d, undelivered %d, fees collected %s, remote consumed tags %d\n",
		bus.DeliveredCount(), bus.UndeliveredCount(), bus.FeesCollected().Dec(), consumed)
	return nil
}

func deliver(bus *relayer.MockMessageBus, out io.Writer) {
	for _, d := range bus.DeliverAll() {
		status := "accepted"
		if !d.Accepted() {
			status = "rejected: " + d.Err.Error()
		}
		fmt.Fprintf(out, "delivered %s to chain %d: %s\n", d.Message.ID, d.Message.DestinationChainID, status)
	}
}

func oneEther() *uint256.Int {
	return uint256.NewInt(1_000_000_000_000_000_000)
}
