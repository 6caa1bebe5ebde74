// Package chaintest provides an in-memory chain for tests of code built on
// chain.Reader, chain.PairFeed and chain.Mitigator.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/shopspring/decimal"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/chain"
)

// ErrExecutionReverted is returned for reads that have no configured value.
var ErrExecutionReverted = errors.New("execution reverted")

// Units converts a decimal string to an 18-decimal integer amount.
func Units(v string) *big.Int {
	return decimal.RequireFromString(v).Shift(18).BigInt()
}

// Addr builds a deterministic address from a small number.
func Addr(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}

type holding struct {
	token, holder common.Address
}

// Chain is a scripted chain. Reads without a configured value fail with
// ErrExecutionReverted.
type Chain struct {
	mu        sync.Mutex
	owners    map[common.Address]common.Address
	supplies  map[common.Address]*big.Int
	balances  map[holding]*big.Int
	reserves  map[common.Address]*chain.Reserves
	SubmitErr error
	WaitErr   error
	submitted []chain.MitigationRequest

	pairs        chan domain.PairCreated
	subscribeErr error
	subscribes   int
}

var (
	_ chain.Reader    = (*Chain)(nil)
	_ chain.PairFeed  = (*Chain)(nil)
	_ chain.Mitigator = (*Chain)(nil)
)

// New creates an empty chain.
func New() *Chain {
	return &Chain{
		owners:   make(map[common.Address]common.Address),
		supplies: make(map[common.Address]*big.Int),
		balances: make(map[holding]*big.Int),
		reserves: make(map[common.Address]*chain.Reserves),
		pairs:    make(chan domain.PairCreated, 16),
	}
}

// SetOwner configures owner() of token.
func (c *Chain) SetOwner(token, owner common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[token] = owner
}

// SetSupply configures totalSupply() of token.
func (c *Chain) SetSupply(token common.Address, v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supplies[token] = v
}

// SetBalance configures balanceOf(holder) on token.
func (c *Chain) SetBalance(token, holder common.Address, v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[holding{token, holder}] = v
}

// SetReserves configures getReserves() of pair.
func (c *Chain) SetReserves(pair common.Address, r0, r1 *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reserves[pair] = &chain.Reserves{Reserve0: r0, Reserve1: r1}
}

// SetSubscribeErr makes SubscribePairs fail with err until cleared.
func (c *Chain) SetSubscribeErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribeErr = err
}

// Submitted returns the mitigation requests seen so far.
func (c *Chain) Submitted() []chain.MitigationRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chain.MitigationRequest(nil), c.submitted...)
}

// Subscribes returns how many SubscribePairs calls were made.
func (c *Chain) Subscribes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribes
}

// Emit publishes a notification to the active subscription. Notifications
// without a receipt time are stamped on delivery.
func (c *Chain) Emit(ev domain.PairCreated) {
	c.pairs <- ev
}

func (c *Chain) Owner(_ context.Context, token common.Address) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[token]
	if !ok {
		return common.Address{}, fmt.Errorf("owner() on %s: %w", token.Hex(), ErrExecutionReverted)
	}
	return owner, nil
}

func (c *Chain) TotalSupply(_ context.Context, token common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.supplies[token]
	if !ok {
		return nil, fmt.Errorf("totalSupply() on %s: %w", token.Hex(), ErrExecutionReverted)
	}
	return new(big.Int).Set(v), nil
}

func (c *Chain) BalanceOf(_ context.Context, token, holder common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.balances[holding{token, holder}]
	if !ok {
		return nil, fmt.Errorf("balanceOf() on %s: %w", token.Hex(), ErrExecutionReverted)
	}
	return new(big.Int).Set(v), nil
}

func (c *Chain) Reserves(_ context.Context, pair common.Address) (*chain.Reserves, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reserves[pair]
	if !ok {
		return nil, fmt.Errorf("getReserves() on %s: %w", pair.Hex(), ErrExecutionReverted)
	}
	cp := *r
	return &cp, nil
}

func (c *Chain) SubmitMitigation(_ context.Context, req chain.MitigationRequest) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = append(c.submitted, req)
	if c.SubmitErr != nil {
		return nil, c.SubmitErr
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    uint64(len(c.submitted)),
		GasPrice: req.GasPrice,
		Gas:      req.GasLimit,
		Value:    req.Value,
	}), nil
}

func (c *Chain) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	c.mu.Lock()
	waitErr := c.WaitErr
	c.mu.Unlock()

	if errors.Is(waitErr, context.DeadlineExceeded) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if waitErr != nil {
		return nil, waitErr
	}
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(1),
		GasUsed:     21000,
	}, nil
}

func (c *Chain) SubscribePairs(_ context.Context, sink chan<- domain.PairCreated) (ethereum.Subscription, error) {
	c.mu.Lock()
	c.subscribes++
	err := c.subscribeErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		for {
			select {
			case ev := <-c.pairs:
				if ev.ReceivedAt.IsZero() {
					ev.ReceivedAt = time.Now()
				}
				select {
				case sink <- ev:
				case <-quit:
					return nil
				}
			case <-quit:
				return nil
			}
		}
	}), nil
}
