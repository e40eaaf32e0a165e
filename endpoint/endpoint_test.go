// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package endpoint

import (
	"crypto/rand"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/xmsg"
	"github.com/luxfi/xmsg/payload"
	"github.com/luxfi/xmsg/relayer"
)

const (
	sapphireChainID uint64 = 0x5afd
	ethereumChainID uint64 = 1
)

var (
	sapphireAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	ethereumAddress = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	alice           = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	oneEther = uint256.MustFromDecimal("1000000000000000000")
)

type testNetwork struct {
	bus      *relayer.MockMessageBus
	signer   *xmsg.LocalSigner
	sapphire *Endpoint
	ethereum *Endpoint
}

// newTestNetwork wires a signing endpoint on one chain to a verifying endpoint
// on the other. Replies travel back unsigned.
func newTestNetwork(t *testing.T, mutate func(sapphire, ethereum *Config)) *testNetwork {
	t.Helper()
	require := require.New(t)

	bus := relayer.NewMockMessageBus(zap.NewNop(), prometheus.NewRegistry(), relayer.Config{
		FeeBase:    uint256.NewInt(1000),
		FeePerByte: uint256.NewInt(10),
	})
	signer, err := xmsg.GenerateLocalSigner()
	require.NoError(err)

	sapphireCfg := Config{
		LocalChainID:   sapphireChainID,
		RemoteChainID:  ethereumChainID,
		Address:        sapphireAddress,
		RemoteContract: ethereumAddress,
		Signer:         signer,
	}
	ethereumCfg := Config{
		LocalChainID:          ethereumChainID,
		RemoteChainID:         sapphireChainID,
		Address:               ethereumAddress,
		RemoteContract:        sapphireAddress,
		RemoteSignerPublicKey: signer.PublicKey(),
	}
	if mutate != nil {
		mutate(&sapphireCfg, &ethereumCfg)
	}

	sapphire, err := New(sapphireCfg, bus)
	require.NoError(err)
	ethereum, err := New(ethereumCfg, bus)
	require.NoError(err)

	bus.Register(sapphireAddress, sapphireChainID, sapphire)
	bus.Register(ethereumAddress, ethereumChainID, ethereum)

	return &testNetwork{
		bus:      bus,
		signer:   signer,
		sapphire: sapphire,
		ethereum: ethereum,
	}
}

func randomness(t *testing.T) [32]byte {
	var r [32]byte
	_, err := rand.Read(r[:])
	require.NoError(t, err)
	return r
}

func collect(e *Endpoint) *[]Event {
	var events []Event
	e.Subscribe(func(event Event) {
		events = append(events, event)
	})
	return &events
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestNewValidatesConfig(t *testing.T) {
	bus := relayer.NewMockMessageBus(zap.NewNop(), prometheus.NewRegistry(), relayer.Config{})

	_, err := New(Config{RemoteContract: ethereumAddress}, bus)
	require.ErrorIs(t, err, errZeroAddress)

	_, err = New(Config{Address: sapphireAddress}, bus)
	require.ErrorIs(t, err, errZeroAddress)

	_, err = New(Config{
		Address:               sapphireAddress,
		RemoteContract:        ethereumAddress,
		RemoteSignerPublicKey: []byte{0x04, 0x01, 0x02},
	}, bus)
	require.ErrorContains(t, err, "invalid remote signer public key")
}

func TestRemoteSignerFromPublicKey(t *testing.T) {
	signer, err := xmsg.GenerateLocalSigner()
	require.NoError(t, err)
	pub, err := crypto.UnmarshalPubkey(signer.PublicKey())
	require.NoError(t, err)

	tests := []struct {
		name string
		key  []byte
	}{
		{name: "uncompressed", key: signer.PublicKey()},
		{name: "compressed", key: crypto.CompressPubkey(pub)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)
			bus := relayer.NewMockMessageBus(zap.NewNop(), prometheus.NewRegistry(), relayer.Config{})
			e, err := New(Config{
				LocalChainID:          ethereumChainID,
				RemoteChainID:         sapphireChainID,
				Address:               ethereumAddress,
				RemoteContract:        sapphireAddress,
				RemoteSignerPublicKey: test.key,
			}, bus)
			require.NoError(err)
			require.Equal(signer.Address(), e.RemoteSigner())

			encoded, _, err := xmsg.NewEncoder(signer, sapphireAddress).
				SignedUniqueMessage(payload.PingSelector, payload.NewPing(randomness(t)).Bytes())
			require.NoError(err)
			require.NoError(e.ExecuteMessage(sapphireAddress, sapphireChainID, encoded))
		})
	}
}

func TestConcurrentExecutionMintsOnce(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, nil)

	_, err := net.sapphire.Deposit(alice, alice, new(uint256.Int).Add(net.sapphire.DepositCost(), oneEther))
	require.NoError(err)
	encoded := net.bus.Pending()[0].Payload

	const racers = 64
	var (
		wg         sync.WaitGroup
		successes  atomic.Int32
		duplicates atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := net.ethereum.ExecuteMessage(sapphireAddress, sapphireChainID, encoded)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, xmsg.ErrDuplicateMessage):
				duplicates.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(int32(1), successes.Load())
	require.Equal(int32(racers-1), duplicates.Load())
	require.Equal(oneEther, net.ethereum.Token().BalanceOf(alice))
	require.Equal(oneEther, net.ethereum.Token().TotalSupply())
}

func TestPing(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, nil)
	received := collect(net.ethereum)

	require.Zero(net.bus.DeliveredCount())
	require.Zero(net.bus.UndeliveredCount())

	r := randomness(t)
	fee, err := net.sapphire.Ping(r, oneEther)
	require.NoError(err)
	require.Equal(net.bus.CalcFee(make([]byte, xmsg.EncodedLength(xmsg.VariantSignedUniqueMessage, 32))), fee)
	require.Equal(PingSent, net.sapphire.PingState(r))

	require.Equal(1, net.bus.UndeliveredCount())
	require.Zero(net.bus.DeliveredCount())

	d, err := net.bus.DeliverOneMessage()
	require.NoError(err)
	require.NoError(d.Err)

	require.Zero(net.bus.UndeliveredCount())
	require.Equal(1, net.bus.DeliveredCount())

	require.Equal([]EventKind{EventPong, EventDecoded}, kinds(*received))
	require.Equal(r, (*received)[0].Randomness)
	require.Equal(payload.PingSelector, (*received)[1].Selector)

	// Without echo the ping stays outstanding
	require.Equal(PingSent, net.sapphire.PingState(r))
	require.InDelta(1, testutil.ToFloat64(
		net.ethereum.metrics.receivedMessages.WithLabelValues(payload.PingSelector.String()),
	), 0)
}

func TestPingInsufficientFee(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, nil)

	r := randomness(t)
	_, err := net.sapphire.Ping(r, uint256.NewInt(1))
	require.ErrorIs(err, xmsg.ErrInsufficientFee)
	require.Equal(PingIdle, net.sapphire.PingState(r))
	require.Zero(net.bus.UndeliveredCount())
}

func TestPingPongEcho(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, func(_, ethereum *Config) {
		ethereum.EchoPong = true
	})
	received := collect(net.sapphire)

	r := randomness(t)
	_, err := net.sapphire.Ping(r, oneEther)
	require.NoError(err)

	d, err := net.bus.DeliverOneMessage()
	require.NoError(err)
	require.NoError(d.Err)
	require.Equal(1, net.bus.UndeliveredCount())

	d, err = net.bus.DeliverOneMessage()
	require.NoError(err)
	require.NoError(d.Err)
	require.Equal(sapphireAddress, d.Message.Receiver)

	require.Equal(PongReceived, net.sapphire.PingState(r))
	require.Equal(2, net.bus.DeliveredCount())
	require.Zero(net.bus.UndeliveredCount())
	require.Contains(kinds(*received), EventPongReceived)
	require.InDelta(1, testutil.ToFloat64(net.sapphire.metrics.pongsReceived), 0)
}

func TestDepositMint(t *testing.T) {
	require := require.New(t)
	cost := uint256.NewInt(1_000_000_000_000_000)
	net := newTestNetwork(t, func(sapphire, _ *Config) {
		sapphire.DepositCost = cost
	})
	minted := collect(net.ethereum)

	require.Equal(cost, net.sapphire.DepositCost())

	value := new(uint256.Int).Add(cost, oneEther)
	amount, err := net.sapphire.Deposit(alice, common.Address{}, value)
	require.NoError(err)
	require.Equal(oneEther, amount)
	require.Equal(oneEther, net.sapphire.Locked())
	require.Equal(1, net.bus.UndeliveredCount())

	d, err := net.bus.DeliverOneMessage()
	require.NoError(err)
	require.NoError(d.Err)

	require.Equal(oneEther, net.ethereum.Token().BalanceOf(alice))
	require.Equal(oneEther, net.ethereum.Token().TotalSupply())
	require.Equal([]EventKind{EventMinted, EventDecoded}, kinds(*minted))
	require.Equal(alice, (*minted)[0].Recipient)
}

func TestDepositInsufficient(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, nil)

	// Unconfigured cost falls back to the bus fee for a deposit envelope
	cost := net.sapphire.DepositCost()
	require.Equal(
		net.bus.CalcFee(make([]byte, xmsg.EncodedLength(xmsg.VariantSignedUniqueMessage, 64))),
		cost,
	)

	for _, value := range []*uint256.Int{nil, new(uint256.Int), cost} {
		_, err := net.sapphire.Deposit(alice, alice, value)
		require.ErrorIs(err, xmsg.ErrInsufficientDeposit)
	}
	require.Zero(net.bus.UndeliveredCount())
	require.True(net.sapphire.Locked().IsZero())

	amount, err := net.sapphire.Deposit(alice, alice, new(uint256.Int).AddUint64(cost, 1))
	require.NoError(err)
	require.Equal(uint64(1), amount.Uint64())
}

func TestBurnWithdraw(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, nil)

	cost := net.sapphire.DepositCost()
	_, err := net.sapphire.Deposit(alice, alice, new(uint256.Int).Add(cost, oneEther))
	require.NoError(err)
	net.bus.DeliverAll()
	require.Equal(oneEther, net.ethereum.Token().BalanceOf(alice))
	withdrawn := collect(net.sapphire)

	quarter := new(uint256.Int).Div(oneEther, uint256.NewInt(4))
	fee := uint256.NewInt(1_000_000)
	require.NoError(net.ethereum.Burn(alice, common.Address{}, quarter, fee))

	remaining := new(uint256.Int).Sub(oneEther, quarter)
	require.Equal(remaining, net.ethereum.Token().BalanceOf(alice))
	require.Equal(remaining, net.ethereum.Token().TotalSupply())

	d, err := net.bus.DeliverOneMessage()
	require.NoError(err)
	require.NoError(d.Err)

	require.Equal(remaining, net.sapphire.Locked())
	require.Equal(quarter, net.sapphire.Withdrawn(alice))
	require.Equal([]EventKind{EventWithdrawn, EventDecoded}, kinds(*withdrawn))
}

func TestBurnErrors(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, nil)
	require.NoError(net.ethereum.Token().Mint(alice, oneEther))

	err := net.ethereum.Burn(alice, alice, new(uint256.Int).AddUint64(oneEther, 1), uint256.NewInt(1_000_000))
	require.ErrorIs(err, xmsg.ErrInsufficientBalance)

	err = net.ethereum.Burn(alice, alice, oneEther, uint256.NewInt(1))
	require.ErrorIs(err, xmsg.ErrInsufficientFee)

	require.Equal(oneEther, net.ethereum.Token().BalanceOf(alice))
	require.Zero(net.bus.UndeliveredCount())
}

func TestWithdrawExceedingLocked(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, nil)
	rejected := collect(net.sapphire)

	// Tokens minted outside the bridge have nothing locked behind them
	require.NoError(net.ethereum.Token().Mint(alice, oneEther))
	require.NoError(net.ethereum.Burn(alice, alice, oneEther, uint256.NewInt(1_000_000)))

	d, err := net.bus.DeliverOneMessage()
	require.NoError(err)
	require.ErrorIs(d.Err, xmsg.ErrInsufficientLocked)

	require.True(net.sapphire.Locked().IsZero())
	require.True(net.sapphire.Withdrawn(alice).IsZero())
	require.Equal([]EventKind{EventRejected}, kinds(*rejected))
}

func TestUnauthorizedSender(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, nil)

	encoded, _, err := xmsg.NewEncoder(net.signer, sapphireAddress).
		SignedUniqueMessage(payload.PingSelector, payload.NewPing(randomness(t)).Bytes())
	require.NoError(err)

	err = net.ethereum.ExecuteMessage(alice, sapphireChainID, encoded)
	require.ErrorIs(err, xmsg.ErrUnauthorizedSender)

	err = net.ethereum.ExecuteMessage(sapphireAddress, ethereumChainID, encoded)
	require.ErrorIs(err, xmsg.ErrUnauthorizedSender)

	// The rejected attempts did not consume the tag
	require.NoError(net.ethereum.ExecuteMessage(sapphireAddress, sapphireChainID, encoded))
}

func TestRejectedMessagesLeaveStateUntouched(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, nil)
	events := collect(net.ethereum)

	impostor, err := xmsg.GenerateLocalSigner()
	require.NoError(err)
	deposit, err := payload.NewDeposit(alice, oneEther)
	require.NoError(err)

	forged, _, err := xmsg.NewEncoder(impostor, sapphireAddress).
		SignedUniqueMessage(payload.DepositSelector, deposit.Bytes())
	require.NoError(err)
	unsigned, _, err := xmsg.NewEncoder(nil, sapphireAddress).
		UniqueMessage(payload.DepositSelector, deposit.Bytes())
	require.NoError(err)
	unknown, _, err := xmsg.NewEncoder(net.signer, sapphireAddress).
		SignedUniqueMessage(xmsg.SelectorOf("drain(address)"), alice.Bytes())
	require.NoError(err)

	tests := []struct {
		name      string
		message   []byte
		expectErr error
	}{
		{name: "forged signature", message: forged, expectErr: xmsg.ErrBadSignature},
		{name: "unsigned envelope", message: unsigned, expectErr: xmsg.ErrMalformedMessage},
		{name: "unknown selector", message: unknown, expectErr: xmsg.ErrUnknownSelector},
		{name: "garbage", message: []byte{0x01, 0x02}, expectErr: xmsg.ErrMalformedMessage},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := net.ethereum.ExecuteMessage(sapphireAddress, sapphireChainID, test.message)
			require.ErrorIs(err, test.expectErr)
		})
	}
	require.True(net.ethereum.Token().TotalSupply().IsZero())
	for _, event := range *events {
		require.Equal(EventRejected, event.Kind)
	}

	// A genuine deposit still goes through, exactly once
	_, err = net.sapphire.Deposit(alice, alice, new(uint256.Int).Add(net.sapphire.DepositCost(), oneEther))
	require.NoError(err)
	genuine := net.bus.Pending()[0].Payload

	d, err := net.bus.DeliverOneMessage()
	require.NoError(err)
	require.NoError(d.Err)
	require.Equal(oneEther, net.ethereum.Token().BalanceOf(alice))

	err = net.ethereum.ExecuteMessage(sapphireAddress, sapphireChainID, genuine)
	require.ErrorIs(err, xmsg.ErrDuplicateMessage)
	require.Equal(oneEther, net.ethereum.Token().BalanceOf(alice))
}

func TestUnsubscribe(t *testing.T) {
	require := require.New(t)
	net := newTestNetwork(t, nil)

	count := 0
	unsubscribe := net.sapphire.Subscribe(func(Event) { count++ })

	_, err := net.sapphire.Ping(randomness(t), oneEther)
	require.NoError(err)
	require.Equal(1, count)

	unsubscribe()
	_, err = net.sapphire.Ping(randomness(t), oneEther)
	require.NoError(err)
	require.Equal(1, count)
}

func TestBusFailures(t *testing.T) {
	require := require.New(t)

	errBusDown := errors.New("bus down")
	bus := &relayer.FakeMessageBus{Err: errBusDown}
	signer, err := xmsg.GenerateLocalSigner()
	require.NoError(err)

	e, err := New(Config{
		LocalChainID:          ethereumChainID,
		RemoteChainID:         sapphireChainID,
		Address:               ethereumAddress,
		RemoteContract:        sapphireAddress,
		RemoteSignerPublicKey: signer.PublicKey(),
		EchoPong:              true,
	}, bus)
	require.NoError(err)
	events := collect(e)

	_, err = e.Deposit(alice, alice, oneEther)
	require.ErrorIs(err, errBusDown)
	require.True(e.Locked().IsZero())

	// A pong that cannot be sent does not undo the executed ping
	r := randomness(t)
	encoded, _, err := xmsg.NewEncoder(signer, sapphireAddress).
		SignedUniqueMessage(payload.PingSelector, payload.NewPing(r).Bytes())
	require.NoError(err)
	require.NoError(e.ExecuteMessage(sapphireAddress, sapphireChainID, encoded))
	require.Equal([]EventKind{EventPong, EventDecoded}, kinds(*events))
	require.Equal(r, (*events)[0].Randomness)
}

func TestDepositWithoutCost(t *testing.T) {
	require := require.New(t)

	bus := &relayer.FakeMessageBus{}
	e, err := New(Config{
		LocalChainID:   ethereumChainID,
		RemoteChainID:  sapphireChainID,
		Address:        ethereumAddress,
		RemoteContract: sapphireAddress,
	}, bus)
	require.NoError(err)
	require.False(e.Signed())
	require.True(e.DepositCost().IsZero())

	amount, err := e.Deposit(alice, common.Address{}, uint256.NewInt(5))
	require.NoError(err)
	require.Equal(uint64(5), amount.Uint64())

	sent := bus.Sent()
	require.Len(sent, 1)
	msg, err := xmsg.DecodeUniqueMessage(sent[0], noopGuard{})
	require.NoError(err)
	require.Equal(payload.DepositSelector, msg.Selector)
	transfer, err := payload.ParseTransfer(msg.Data)
	require.NoError(err)
	require.Equal(alice, transfer.Recipient)
	require.Equal(amount, transfer.Amount)
}

type noopGuard struct{}

func (noopGuard) Consume(xmsg.Tag) error { return nil }
