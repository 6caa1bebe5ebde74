// Package heuristic decides whether a candidate token looks like a honeypot
// and routes it to the blacklist or to mitigation.
package heuristic

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/core/state"
	"github.com/vietddude/honeywatch/internal/infra/chain"
	"github.com/vietddude/honeywatch/internal/screening/metrics"
)

// Thresholds are the limits of the four checks. Ratios are fractions of the
// relevant supply.
type Thresholds struct {
	MinBaseReserve     decimal.Decimal
	ReserveSupplyRatio decimal.Decimal
	OwnerBalanceRatio  decimal.Decimal
	OwnerLPRatio       decimal.Decimal
	Decimals           int32
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinBaseReserve:     decimal.NewFromInt(10),
		ReserveSupplyRatio: decimal.RequireFromString("0.8"),
		OwnerBalanceRatio:  decimal.RequireFromString("0.7"),
		OwnerLPRatio:       decimal.RequireFromString("0.7"),
		Decimals:           18,
	}
}

// Executor runs mitigation for a candidate that passed every check.
type Executor interface {
	Execute(ctx context.Context, c *domain.CandidateToken) (domain.MitigationOutcome, error)
}

// Evaluator applies the checks to registered candidates.
type Evaluator struct {
	th        Thresholds
	reader    chain.Reader
	registry  *state.Registry
	blacklist *state.Blacklist
	executor  Executor
	log       *slog.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(th Thresholds, reader chain.Reader, registry *state.Registry, blacklist *state.Blacklist, executor Executor) *Evaluator {
	return &Evaluator{
		th:        th,
		reader:    reader,
		registry:  registry,
		blacklist: blacklist,
		executor:  executor,
		log:       slog.Default().With("component", "heuristic"),
	}
}

// Evaluate runs one full pass for token: assess, then blacklist or mitigate.
// The candidate leaves the registry when the pass ends, whatever the result.
// An untracked token is a no-op and yields the zero Verdict.
//
// The pass ignores cancellation of ctx so that a started mitigation is never
// abandoned halfway.
func (e *Evaluator) Evaluate(ctx context.Context, token common.Address) (domain.Verdict, error) {
	c, ok := e.registry.Get(token)
	if !ok {
		return domain.Verdict{}, nil
	}

	ctx = context.WithoutCancel(ctx)
	log := e.log.With(
		"eval_id", uuid.NewString(),
		"token", c.Address.Hex(),
		"pair", c.PairAddress.Hex(),
		"owner", c.Owner.Hex(),
	)
	start := time.Now()

	defer func() {
		if err := e.registry.Remove(ctx, c.Address); err != nil {
			log.Error("Failed to remove candidate", "error", err)
		}
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	verdict, err := e.Assess(ctx, c)
	if err != nil {
		metrics.EvaluationErrors.Inc()
		log.Error("Evaluation failed", "error", err)
		return domain.Verdict{}, err
	}

	if verdict.Action == domain.ActionBlacklist {
		log.Warn("Honeypot suspected", "reason", verdict.Reason, "observed", verdict.Observed.String(), "limit", verdict.Limit.String())
		metrics.Verdicts.WithLabelValues(string(verdict.Action), string(verdict.Reason)).Inc()
		if _, err := e.blacklist.Add(ctx, c.Owner, c.Address); err != nil {
			log.Error("Failed to blacklist token", "error", err)
			return verdict, err
		}
		return verdict, nil
	}

	log.Info("Checks passed, mitigating")
	// A pending outcome keeps the proceed verdict; a late failure is applied
	// when the receipt wait settles.
	outcome, err := e.executor.Execute(ctx, c)
	if outcome == domain.MitigationFailed {
		verdict = domain.Blacklist(domain.ReasonMitigationFailed, decimal.Zero, decimal.Zero)
	}
	metrics.Verdicts.WithLabelValues(string(verdict.Action), string(verdict.Reason)).Inc()
	return verdict, err
}

// Assess runs the checks in order and stops at the first one that fires. It
// has no side effects beyond contract reads. A failed read of the reserves or
// the token supply is an error; a failed read in the owner checks skips that
// check only. Tokens with an unknown owner skip the owner checks.
func (e *Evaluator) Assess(ctx context.Context, c *domain.CandidateToken) (domain.Verdict, error) {
	log := e.log.With("token", c.Address.Hex())

	// 1. Base asset liquidity
	reserves, err := e.reader.Reserves(ctx, c.PairAddress)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to read reserves of %s: %w", c.PairAddress.Hex(), err)
	}
	baseRaw, tokenRaw := reserves.Reserve1, reserves.Reserve0
	if c.IsBaseToken0 {
		baseRaw, tokenRaw = reserves.Reserve0, reserves.Reserve1
	}

	baseReserve := e.scale(baseRaw)
	if baseReserve.LessThan(e.th.MinBaseReserve) {
		return domain.Blacklist(domain.ReasonLowLiquidity, baseReserve, e.th.MinBaseReserve), nil
	}

	// 2. Token reserve against total supply
	rawSupply, err := e.reader.TotalSupply(ctx, c.Address)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to read total supply of %s: %w", c.Address.Hex(), err)
	}
	supply := e.scale(rawSupply)
	tokenReserve := e.scale(tokenRaw)
	if limit := supply.Mul(e.th.ReserveSupplyRatio); tokenReserve.LessThan(limit) {
		return domain.Blacklist(domain.ReasonReserveRatio, tokenReserve, limit), nil
	}

	if !c.HasOwner() {
		log.Debug("Owner unknown, skipping owner checks")
		return domain.Proceed(), nil
	}

	// 3. Owner token balance
	if rawBalance, err := e.reader.BalanceOf(ctx, c.Address, c.Owner); err != nil {
		log.Warn("Owner balance unavailable, skipping check", "error", err)
	} else {
		balance := e.scale(rawBalance)
		if limit := supply.Mul(e.th.OwnerBalanceRatio); balance.GreaterThan(limit) {
			return domain.Blacklist(domain.ReasonOwnerConcentration, balance, limit), nil
		}
	}

	// 4. Owner share of the LP supply
	lpBalance, lpSupply, err := e.lpPosition(ctx, c)
	if err != nil {
		log.Warn("LP position unavailable, skipping check", "error", err)
		return domain.Proceed(), nil
	}
	if limit := lpSupply.Mul(e.th.OwnerLPRatio); lpBalance.GreaterThan(limit) {
		return domain.Blacklist(domain.ReasonOwnerLPConcentration, lpBalance, limit), nil
	}

	return domain.Proceed(), nil
}

func (e *Evaluator) lpPosition(ctx context.Context, c *domain.CandidateToken) (balance, supply decimal.Decimal, err error) {
	rawBalance, err := e.reader.BalanceOf(ctx, c.PairAddress, c.Owner)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("balanceOf on pair: %w", err)
	}
	rawSupply, err := e.reader.TotalSupply(ctx, c.PairAddress)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("totalSupply on pair: %w", err)
	}
	return e.scale(rawBalance), e.scale(rawSupply), nil
}

func (e *Evaluator) scale(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -e.th.Decimals)
}
