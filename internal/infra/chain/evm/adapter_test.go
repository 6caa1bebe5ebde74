package evm

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/honeywatch/internal/infra/chain"
)

// fakeBackend answers eth_call by method selector. Methods not overridden
// panic through the nil embedded interface.
type fakeBackend struct {
	Backend
	responses map[string][]byte
	fail      map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{responses: map[string][]byte{}, fail: map[string]error{}}
}

func (f *fakeBackend) answer(t *testing.T, parsed abi.ABI, method string, values ...any) {
	t.Helper()
	m := parsed.Methods[method]
	packed, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	f.responses[string(m.ID)] = packed
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	sel := string(msg.Data[:4])
	if err, ok := f.fail[sel]; ok {
		return nil, err
	}
	if out, ok := f.responses[sel]; ok {
		return out, nil
	}
	return nil, errors.New("execution reverted")
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(8453), nil
}

func newTestAdapter(t *testing.T, backend Backend) *EVMAdapter {
	t.Helper()
	a, err := NewEVMAdapter(context.Background(), backend, Config{
		Factory: common.HexToAddress("0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6"),
		Helper:  common.HexToAddress("0x84384d4069596fac7b2263ff946e2456bd5d0186"),
	})
	require.NoError(t, err)
	return a
}

func TestEVMAdapter_Reads(t *testing.T) {
	backend := newFakeBackend()
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	backend.answer(t, erc20ABI, "owner", owner)
	backend.answer(t, erc20ABI, "totalSupply", big.NewInt(1000))
	backend.answer(t, erc20ABI, "balanceOf", big.NewInt(42))
	backend.answer(t, pairABI, "getReserves", big.NewInt(5), big.NewInt(7), uint32(99))

	a := newTestAdapter(t, backend)
	ctx := context.Background()
	token := common.HexToAddress("0x1000000000000000000000000000000000000001")

	got, err := a.Owner(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	supply, err := a.TotalSupply(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), supply.Int64())

	bal, err := a.BalanceOf(ctx, token, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(42), bal.Int64())

	res, err := a.Reserves(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Reserve0.Int64())
	assert.Equal(t, int64(7), res.Reserve1.Int64())
	assert.Equal(t, uint32(99), res.BlockTimestampLast)
}

func TestEVMAdapter_OwnerMissing(t *testing.T) {
	backend := newFakeBackend()
	backend.fail[string(erc20ABI.Methods["owner"].ID)] = errors.New("execution reverted")

	a := newTestAdapter(t, backend)
	_, err := a.Owner(context.Background(), common.HexToAddress("0x01"))
	require.ErrorIs(t, err, chain.ErrNoOwner)
	assert.Contains(t, err.Error(), "execution reverted")
}

func TestEVMAdapter_SubmitWithoutKey(t *testing.T) {
	a := newTestAdapter(t, newFakeBackend())
	_, err := a.SubmitMitigation(context.Background(), chain.MitigationRequest{
		Token:           common.HexToAddress("0x01"),
		SlippagePercent: big.NewInt(40),
		Deadline:        big.NewInt(1),
	})
	require.Error(t, err)
}

func TestDecodePairCreated(t *testing.T) {
	token0 := common.HexToAddress("0x4200000000000000000000000000000000000006")
	token1 := common.HexToAddress("0x2000000000000000000000000000000000000002")
	pair := common.HexToAddress("0x3000000000000000000000000000000000000003")

	data, err := factoryABI.Events["PairCreated"].Inputs.NonIndexed().Pack(pair, big.NewInt(17))
	require.NoError(t, err)

	lg := types.Log{
		Topics: []common.Hash{
			PairCreatedTopic,
			common.BytesToHash(token0.Bytes()),
			common.BytesToHash(token1.Bytes()),
		},
		Data:        data,
		BlockNumber: 123,
	}

	ev, err := DecodePairCreated(lg)
	require.NoError(t, err)
	assert.Equal(t, token0, ev.Token0)
	assert.Equal(t, token1, ev.Token1)
	assert.Equal(t, pair, ev.Pair)
	assert.Equal(t, uint64(123), ev.BlockNumber)
}

func TestDecodePairCreated_WrongTopic(t *testing.T) {
	lg := types.Log{Topics: []common.Hash{common.HexToHash("0x01"), {}, {}}, Data: bytes.Repeat([]byte{0}, 64)}
	_, err := DecodePairCreated(lg)
	assert.Error(t, err)
}
