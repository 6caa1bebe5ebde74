// Package discovery turns factory PairCreated notifications into tracked
// candidate tokens.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/core/state"
	"github.com/vietddude/honeywatch/internal/infra/chain"
	"github.com/vietddude/honeywatch/internal/screening/metrics"
)

// Outcome describes what Handle did with a notification.
type Outcome string

const (
	OutcomeIgnored          Outcome = "ignored"
	OutcomeOwnerUnavailable Outcome = "owner_unavailable"
	OutcomeBlacklisted      Outcome = "blacklisted"
	OutcomeAlreadyTracked   Outcome = "already_tracked"
	OutcomeRegistered       Outcome = "registered"
	OutcomeStoreFailed      Outcome = "store_failed"
)

// Config controls which pairs are of interest.
type Config struct {
	BaseAsset common.Address
	// TrackUnknownOwner registers tokens whose owner() call fails under
	// domain.UnknownOwner, flagged as unknown, instead of dropping them.
	TrackUnknownOwner bool
}

// Listener registers candidates discovered in base-asset pairs.
type Listener struct {
	cfg       Config
	reader    chain.Reader
	registry  *state.Registry
	blacklist *state.Blacklist
	now       func() time.Time
	log       *slog.Logger
}

// NewListener creates a listener writing into registry.
func NewListener(cfg Config, reader chain.Reader, registry *state.Registry, blacklist *state.Blacklist) *Listener {
	return &Listener{
		cfg:       cfg,
		reader:    reader,
		registry:  registry,
		blacklist: blacklist,
		now:       time.Now,
		log:       slog.Default().With("component", "discovery"),
	}
}

// WithClock replaces the discovery timestamp source.
func (l *Listener) WithClock(now func() time.Time) *Listener {
	l.now = now
	return l
}

// Handle processes one notification. The returned error is non-nil only when
// the candidate could not be persisted; every other case is reported through
// the Outcome.
func (l *Listener) Handle(ctx context.Context, ev domain.PairCreated) (Outcome, error) {
	metrics.PairsSeen.Inc()
	outcome, err := l.handle(ctx, ev)
	metrics.DiscoveryOutcomes.WithLabelValues(string(outcome)).Inc()
	return outcome, err
}

func (l *Listener) handle(ctx context.Context, ev domain.PairCreated) (Outcome, error) {
	token, baseIsToken0, ok := ev.SplitBase(l.cfg.BaseAsset)
	if !ok {
		l.log.Debug("Ignoring pair without base asset", "pair", ev.Pair.Hex(), "token0", ev.Token0.Hex(), "token1", ev.Token1.Hex())
		return OutcomeIgnored, nil
	}

	log := l.log.With("token", token.Hex(), "pair", ev.Pair.Hex(), "block", ev.BlockNumber)
	log.Info("New token pair", "tx", ev.TxHash.Hex())

	owner, err := l.reader.Owner(ctx, token)
	ownerUnknown := err != nil
	if err != nil {
		if !l.cfg.TrackUnknownOwner {
			log.Warn("Owner lookup failed, dropping token", "error", err)
			return OutcomeOwnerUnavailable, nil
		}
		log.Warn("Owner lookup failed, tracking with unknown owner", "error", err)
		owner = domain.UnknownOwner
	}

	if l.blacklist.Contains(owner, token) {
		log.Info("Token already blacklisted", "owner", owner.Hex())
		return OutcomeBlacklisted, nil
	}

	// Queued notifications keep the time they arrived, not the time the loop
	// got to them.
	discoveredAt := ev.ReceivedAt
	if discoveredAt.IsZero() {
		discoveredAt = l.now()
	}
	added, err := l.registry.Add(ctx, &domain.CandidateToken{
		Address:      token,
		PairAddress:  ev.Pair,
		IsBaseToken0: baseIsToken0,
		DiscoveredAt: discoveredAt,
		Owner:        owner,
		OwnerUnknown: ownerUnknown,
	})
	if err != nil {
		log.Error("Failed to register candidate", "error", err)
		return OutcomeStoreFailed, fmt.Errorf("failed to register %s: %w", token.Hex(), err)
	}
	if !added {
		log.Debug("Token already tracked")
		return OutcomeAlreadyTracked, nil
	}

	log.Info("Token registered", "owner", owner.Hex())
	return OutcomeRegistered, nil
}
