package evm

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/chain"
)

// logBackend adds log subscriptions, receipts and transaction sending to
// fakeBackend.
type logBackend struct {
	*fakeBackend
	mu       sync.Mutex
	logs     chan<- types.Log
	sub      *fakeSub
	receipts map[common.Hash]*types.Receipt
	sent     []*types.Transaction
}

func newLogBackend() *logBackend {
	return &logBackend{fakeBackend: newFakeBackend(), receipts: map[common.Hash]*types.Receipt{}}
}

type fakeSub struct {
	err chan error
}

func (s *fakeSub) Err() <-chan error { return s.err }
func (s *fakeSub) Unsubscribe()      {}

func (b *logBackend) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = ch
	b.sub = &fakeSub{err: make(chan error, 1)}
	return b.sub, nil
}

func (b *logBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (b *logBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}

func (b *logBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func pairLog(t *testing.T, token0, token1, pair common.Address, block uint64) types.Log {
	t.Helper()
	data, err := factoryABI.Events["PairCreated"].Inputs.NonIndexed().Pack(pair, big.NewInt(1))
	require.NoError(t, err)
	return types.Log{
		Topics: []common.Hash{
			PairCreatedTopic,
			common.BytesToHash(token0.Bytes()),
			common.BytesToHash(token1.Bytes()),
		},
		Data:        data,
		BlockNumber: block,
	}
}

func TestSubscribePairs_SkipsRemovedLogs(t *testing.T) {
	backend := newLogBackend()
	a := newTestAdapter(t, backend)
	received := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return received }

	sink := make(chan domain.PairCreated, 4)
	sub, err := a.SubscribePairs(context.Background(), sink)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	weth := common.HexToAddress("0x4200000000000000000000000000000000000006")
	reorged := pairLog(t, common.HexToAddress("0x01"), weth, common.HexToAddress("0xa1"), 10)
	reorged.Removed = true
	live := pairLog(t, common.HexToAddress("0x02"), weth, common.HexToAddress("0xa2"), 11)

	backend.logs <- reorged
	backend.logs <- live

	select {
	case ev := <-sink:
		assert.Equal(t, common.HexToAddress("0xa2"), ev.Pair)
		assert.Equal(t, uint64(11), ev.BlockNumber)
		assert.Equal(t, received, ev.ReceivedAt)
	case <-time.After(time.Second):
		t.Fatal("no notification forwarded")
	}
	select {
	case ev := <-sink:
		t.Fatalf("unexpected notification for %s", ev.Pair.Hex())
	default:
	}
}

func TestSubscribePairs_PropagatesSubscriptionError(t *testing.T) {
	backend := newLogBackend()
	a := newTestAdapter(t, backend)

	sub, err := a.SubscribePairs(context.Background(), make(chan domain.PairCreated))
	require.NoError(t, err)
	defer sub.Unsubscribe()

	dropped := errors.New("websocket: close 1006 (abnormal closure)")
	backend.sub.err <- dropped

	select {
	case err := <-sub.Err():
		assert.ErrorIs(t, err, dropped)
	case <-time.After(time.Second):
		t.Fatal("subscription error not propagated")
	}
}

func TestEVMAdapter_WaitMinedReverted(t *testing.T) {
	backend := newLogBackend()
	a := newTestAdapter(t, backend)

	tx := types.NewTx(&types.LegacyTx{Nonce: 1, Gas: 21000, GasPrice: big.NewInt(1)})
	backend.receipts[tx.Hash()] = &types.Receipt{
		Status:      types.ReceiptStatusFailed,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(99),
	}

	receipt, err := a.WaitMined(context.Background(), tx)
	require.ErrorIs(t, err, chain.ErrTxReverted)
	require.NotNil(t, receipt)
	assert.Equal(t, int64(99), receipt.BlockNumber.Int64())
}

func TestEVMAdapter_WaitMinedSuccess(t *testing.T) {
	backend := newLogBackend()
	a := newTestAdapter(t, backend)

	tx := types.NewTx(&types.LegacyTx{Nonce: 2, Gas: 21000, GasPrice: big.NewInt(1)})
	backend.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash(), BlockNumber: big.NewInt(5)}

	receipt, err := a.WaitMined(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), receipt.TxHash)
}

func TestEVMAdapter_SubmitMitigation(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	backend := newLogBackend()
	helper := common.HexToAddress("0x84384d4069596fac7b2263ff946e2456bd5d0186")

	a, err := NewEVMAdapter(context.Background(), backend, Config{
		Factory:    common.HexToAddress("0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6"),
		Helper:     helper,
		PrivateKey: "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
	})
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), a.From())

	token := common.HexToAddress("0x2000000000000000000000000000000000000002")
	req := chain.MitigationRequest{
		Token:           token,
		SlippagePercent: big.NewInt(40),
		Deadline:        big.NewInt(1_700_001_200),
		Value:           big.NewInt(80_000_000_000_000),
		GasPrice:        big.NewInt(7_000_000_000),
		GasLimit:        1_000_000,
	}
	tx, err := a.SubmitMitigation(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	assert.Equal(t, tx.Hash(), backend.sent[0].Hash())
	assert.Equal(t, req.Value.String(), tx.Value().String())
	assert.Equal(t, req.GasPrice.String(), tx.GasPrice().String())
	assert.Equal(t, req.GasLimit, tx.Gas())
	assert.Equal(t, uint64(7), tx.Nonce())
	require.NotNil(t, tx.To())
	assert.Equal(t, helper, *tx.To())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), tx)
	require.NoError(t, err)
	assert.Equal(t, a.From(), from)

	method := helperABI.Methods["fightHoneypot"]
	assert.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	require.Len(t, args, 3)
	assert.Equal(t, token, args[0])
	assert.Equal(t, "40", args[1].(*big.Int).String())
	assert.Equal(t, "1700001200", args[2].(*big.Int).String())
}
