package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vietddude/honeywatch/internal/infra/chain"
)

// Backend is the subset of ethclient.Client the adapter needs.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Config holds the addresses the adapter talks to.
type Config struct {
	Factory    common.Address
	Helper     common.Address
	PrivateKey string
}

// EVMAdapter implements chain.Reader, chain.PairFeed and chain.Mitigator on
// top of a go-ethereum client.
type EVMAdapter struct {
	backend Backend
	closer  func()
	factory common.Address
	helper  *bind.BoundContract
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	now     func() time.Time
	log     *slog.Logger
}

var (
	_ chain.Reader    = (*EVMAdapter)(nil)
	_ chain.PairFeed  = (*EVMAdapter)(nil)
	_ chain.Mitigator = (*EVMAdapter)(nil)
)

// Dial connects to a websocket (or IPC) endpoint; subscriptions need one of
// those transports.
func Dial(ctx context.Context, url string, cfg Config) (*EVMAdapter, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	a, err := NewEVMAdapter(ctx, client, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	a.closer = client.Close
	return a, nil
}

// NewEVMAdapter wraps an existing backend. The signing key is optional; without
// it the adapter can read but not submit.
func NewEVMAdapter(ctx context.Context, backend Backend, cfg Config) (*EVMAdapter, error) {
	a := &EVMAdapter{
		backend: backend,
		factory: cfg.Factory,
		helper:  bind.NewBoundContract(cfg.Helper, helperABI, backend, backend, backend),
		now:     time.Now,
		log:     slog.Default().With("component", "evm"),
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		chainID, err := backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("eth_chainId failed: %w", err)
		}
		a.key = key
		a.from = crypto.PubkeyToAddress(key.PublicKey)
		a.chainID = chainID
		a.log.Info("Signer loaded", "address", a.from.Hex(), "chain_id", chainID.String())
	}
	return a, nil
}

// Close releases the underlying connection when the adapter dialed it.
func (a *EVMAdapter) Close() {
	if a.closer != nil {
		a.closer()
	}
}

// From returns the signer address, or the zero address without a key.
func (a *EVMAdapter) From() common.Address {
	return a.from
}

func (a *EVMAdapter) bound(addr common.Address, parsed abi.ABI) *bind.BoundContract {
	return bind.NewBoundContract(addr, parsed, a.backend, a.backend, a.backend)
}

// call invokes a view method and returns the unpacked outputs.
func (a *EVMAdapter) call(ctx context.Context, addr common.Address, parsed abi.ABI, method string, params ...any) ([]any, error) {
	var out []any
	if err := a.bound(addr, parsed).Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%s on %s failed: %w", method, addr.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s on %s returned no data", method, addr.Hex())
	}
	return out, nil
}

func (a *EVMAdapter) Owner(ctx context.Context, token common.Address) (common.Address, error) {
	out, err := a.call(ctx, token, erc20ABI, "owner")
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", chain.ErrNoOwner, err)
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (a *EVMAdapter) TotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	out, err := a.call(ctx, token, erc20ABI, "totalSupply")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (a *EVMAdapter) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	out, err := a.call(ctx, token, erc20ABI, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (a *EVMAdapter) Reserves(ctx context.Context, pair common.Address) (*chain.Reserves, error) {
	out, err := a.call(ctx, pair, pairABI, "getReserves")
	if err != nil {
		return nil, err
	}
	if len(out) < 3 {
		return nil, fmt.Errorf("getReserves on %s returned %d values", pair.Hex(), len(out))
	}
	return &chain.Reserves{
		Reserve0:           *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		Reserve1:           *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		BlockTimestampLast: *abi.ConvertType(out[2], new(uint32)).(*uint32),
	}, nil
}

// SubmitMitigation signs and broadcasts fightHoneypot(token, slippage, deadline).
func (a *EVMAdapter) SubmitMitigation(ctx context.Context, req chain.MitigationRequest) (*types.Transaction, error) {
	if a.key == nil {
		return nil, fmt.Errorf("no signing key configured")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(a.key, a.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx
	opts.Value = req.Value
	opts.GasPrice = req.GasPrice
	opts.GasLimit = req.GasLimit

	tx, err := a.helper.Transact(opts, "fightHoneypot", req.Token, req.SlippagePercent, req.Deadline)
	if err != nil {
		return nil, fmt.Errorf("fightHoneypot submission failed: %w", err)
	}
	return tx, nil
}

// WaitMined waits for tx and maps a failed receipt to chain.ErrTxReverted.
func (a *EVMAdapter) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, a.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s failed: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%s in block %s: %w", tx.Hash().Hex(), receipt.BlockNumber, chain.ErrTxReverted)
	}
	return receipt, nil
}
