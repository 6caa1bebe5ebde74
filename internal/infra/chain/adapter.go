package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/vietddude/honeywatch/internal/core/domain"
)

var (
	// ErrNoOwner is returned when a token's owner() accessor cannot be read
	ErrNoOwner = errors.New("owner unavailable")

	// ErrTxReverted is returned when a mined transaction has a failed status
	ErrTxReverted = errors.New("transaction reverted")
)

// Reserves is the result of a pair's getReserves() call.
type Reserves struct {
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
}

// Reader defines the read-only contract calls used by discovery and the
// heuristics. LP tokens are ERC20s, so TotalSupply and BalanceOf serve both
// the token and its pair.
type Reader interface {
	// Owner calls owner() on the token contract
	Owner(ctx context.Context, token common.Address) (common.Address, error)

	// TotalSupply calls totalSupply() on an ERC20 contract
	TotalSupply(ctx context.Context, token common.Address) (*big.Int, error)

	// BalanceOf calls balanceOf(holder) on an ERC20 contract
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)

	// Reserves calls getReserves() on a pair contract
	Reserves(ctx context.Context, pair common.Address) (*Reserves, error)
}

// PairFeed delivers factory PairCreated notifications.
type PairFeed interface {
	// SubscribePairs streams notifications into sink until the subscription
	// fails or is unsubscribed
	SubscribePairs(ctx context.Context, sink chan<- domain.PairCreated) (ethereum.Subscription, error)
}

// MitigationRequest carries the arguments and the transaction options of one
// helper contract call.
type MitigationRequest struct {
	Token           common.Address
	SlippagePercent *big.Int
	Deadline        *big.Int
	Value           *big.Int
	GasPrice        *big.Int
	GasLimit        uint64
}

// Mitigator submits the helper contract call and waits for its receipt.
type Mitigator interface {
	// SubmitMitigation signs and broadcasts the helper call
	SubmitMitigation(ctx context.Context, req MitigationRequest) (*types.Transaction, error)

	// WaitMined blocks until tx is mined; a failed status yields ErrTxReverted
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}
