// Package mitigation submits the fightHoneypot helper call for candidates that
// passed the heuristics.
package mitigation

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/core/state"
	"github.com/vietddude/honeywatch/internal/infra/chain"
	"github.com/vietddude/honeywatch/internal/screening/metrics"
)

// Config holds the call arguments and transaction options.
type Config struct {
	SlippagePercent int64
	DeadlineWindow  time.Duration
	// ConfirmGrace extends the wait for a receipt past the call deadline.
	ConfirmGrace time.Duration
	Value        *big.Int
	GasPrice     *big.Int
	GasLimit     uint64
}

// DefaultConfig returns the stock call parameters.
func DefaultConfig() Config {
	return Config{
		SlippagePercent: 40,
		DeadlineWindow:  20 * time.Minute,
		ConfirmGrace:    time.Minute,
		Value:           EtherToWei(decimal.RequireFromString("0.00008")),
		GasPrice:        GweiToWei(decimal.NewFromInt(7)),
		GasLimit:        1_000_000,
	}
}

// EtherToWei converts an ether amount to wei, truncating below one wei.
func EtherToWei(v decimal.Decimal) *big.Int {
	return v.Shift(18).BigInt()
}

// GweiToWei converts a gwei amount to wei, truncating below one wei.
func GweiToWei(v decimal.Decimal) *big.Int {
	return v.Shift(9).BigInt()
}

// Executor submits mitigation transactions and blacklists the token when the
// transaction cannot be confirmed. Receipts are awaited in the background and
// reported on Results; the owner of the loop applies them with Settle.
type Executor struct {
	cfg       Config
	mitigator chain.Mitigator
	blacklist *state.Blacklist
	now       func() time.Time
	log       *slog.Logger

	results  chan domain.Settlement
	inflight atomic.Int64
}

// NewExecutor creates an executor.
func NewExecutor(cfg Config, mitigator chain.Mitigator, blacklist *state.Blacklist) *Executor {
	return &Executor{
		cfg:       cfg,
		mitigator: mitigator,
		blacklist: blacklist,
		now:       time.Now,
		log:       slog.Default().With("component", "mitigation"),
		results:   make(chan domain.Settlement, resultBuffer),
	}
}

const resultBuffer = 64

// WithClock replaces the source used to compute call deadlines.
func (x *Executor) WithClock(now func() time.Time) *Executor {
	x.now = now
	return x
}

// Request builds the helper call for token with the deadline measured from
// the current time.
func (x *Executor) Request(token *domain.CandidateToken) chain.MitigationRequest {
	deadline := x.now().Add(x.cfg.DeadlineWindow)
	return chain.MitigationRequest{
		Token:           token.Address,
		SlippagePercent: big.NewInt(x.cfg.SlippagePercent),
		Deadline:        big.NewInt(deadline.Unix()),
		Value:           new(big.Int).Set(x.cfg.Value),
		GasPrice:        new(big.Int).Set(x.cfg.GasPrice),
		GasLimit:        x.cfg.GasLimit,
	}
}

// Execute submits the call. A rejected submission ends as MitigationFailed
// with the token blacklisted under its owner; the returned error is non-nil
// only when that blacklist write fails. An accepted submission returns
// MitigationPending and its receipt is awaited in the background until the
// call deadline plus ConfirmGrace. Cancellation of ctx is ignored.
func (x *Executor) Execute(ctx context.Context, c *domain.CandidateToken) (domain.MitigationOutcome, error) {
	ctx = context.WithoutCancel(ctx)
	log := x.log.With("token", c.Address.Hex(), "owner", c.Owner.Hex())

	req := x.Request(c)
	tx, err := x.mitigator.SubmitMitigation(ctx, req)
	if err != nil {
		return x.fail(ctx, c, log, err)
	}
	log.Info("Mitigation sent", "tx", tx.Hash().Hex(), "deadline", req.Deadline.Int64())

	waitUntil := time.Unix(req.Deadline.Int64(), 0).Add(x.cfg.ConfirmGrace)
	x.inflight.Add(1)
	metrics.MitigationsInFlight.Inc()
	go x.await(ctx, c.Clone(), tx, waitUntil, log)
	return domain.MitigationPending, nil
}

func (x *Executor) await(ctx context.Context, c *domain.CandidateToken, tx *types.Transaction, until time.Time, log *slog.Logger) {
	waitCtx, cancel := context.WithDeadline(ctx, until)
	defer cancel()

	receipt, err := x.mitigator.WaitMined(waitCtx, tx)
	if err == nil {
		log.Debug("Receipt received", "tx", tx.Hash().Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	}
	x.results <- domain.Settlement{Token: c, Tx: tx.Hash(), Err: err}
}

// Results delivers one Settlement per MitigationPending returned by Execute.
func (x *Executor) Results() <-chan domain.Settlement {
	return x.results
}

// Pending returns the number of sent transactions not yet settled.
func (x *Executor) Pending() int {
	return int(x.inflight.Load())
}

// Settle applies a receipt result: a failed or missing receipt blacklists the
// token under its owner. The returned error is non-nil only when that
// blacklist write fails.
func (x *Executor) Settle(ctx context.Context, s domain.Settlement) (domain.MitigationOutcome, error) {
	defer func() {
		x.inflight.Add(-1)
		metrics.MitigationsInFlight.Dec()
	}()
	ctx = context.WithoutCancel(ctx)
	log := x.log.With("token", s.Token.Address.Hex(), "owner", s.Token.Owner.Hex(), "tx", s.Tx.Hex())

	if s.Err != nil {
		return x.fail(ctx, s.Token, log, s.Err)
	}
	log.Info("Mitigation confirmed")
	metrics.Mitigations.WithLabelValues(string(domain.MitigationConfirmed)).Inc()
	return domain.MitigationConfirmed, nil
}

func (x *Executor) fail(ctx context.Context, c *domain.CandidateToken, log *slog.Logger, cause error) (domain.MitigationOutcome, error) {
	metrics.Mitigations.WithLabelValues(string(domain.MitigationFailed)).Inc()
	if errors.Is(cause, chain.ErrTxReverted) {
		log.Error("Mitigation reverted", "error", cause)
	} else {
		log.Error("Mitigation failed", "error", cause)
	}

	if _, err := x.blacklist.Add(ctx, c.Owner, c.Address); err != nil {
		log.Error("Failed to blacklist token after mitigation failure", "error", err)
		return domain.MitigationFailed, err
	}
	log.Info("Token blacklisted after mitigation failure")
	return domain.MitigationFailed, nil
}
