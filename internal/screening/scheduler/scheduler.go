// Package scheduler owns the single loop that applies discovery results and
// runs evaluations, so registry and blacklist mutations never race.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/core/state"
	"github.com/vietddude/honeywatch/internal/infra/chain"
	"github.com/vietddude/honeywatch/internal/infra/rpc/routing"
	"github.com/vietddude/honeywatch/internal/screening/discovery"
	"github.com/vietddude/honeywatch/internal/screening/metrics"
)

// Config controls sweep timing.
type Config struct {
	// WaitPeriod is the minimum candidate age before evaluation.
	WaitPeriod   time.Duration
	TickInterval time.Duration
	QueueSize    int
}

// DefaultConfig returns the stock timing.
func DefaultConfig() Config {
	return Config{
		WaitPeriod:   time.Minute,
		TickInterval: 60 * time.Second,
		QueueSize:    256,
	}
}

// Discoverer handles one PairCreated notification.
type Discoverer interface {
	Handle(ctx context.Context, ev domain.PairCreated) (discovery.Outcome, error)
}

// Evaluator runs one evaluation pass for a tracked token.
type Evaluator interface {
	Evaluate(ctx context.Context, token common.Address) (domain.Verdict, error)
}

// Settler hands back the receipt results of mitigations sent during
// evaluations so they are applied on the loop.
type Settler interface {
	Results() <-chan domain.Settlement
	Pending() int
	Settle(ctx context.Context, s domain.Settlement) (domain.MitigationOutcome, error)
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running       bool
	FeedConnected bool
	LastSweep     time.Time
	Pending       int
}

// Scheduler feeds notifications to the listener and sweeps the registry on a
// fixed interval. Both run on the goroutine that called Start.
type Scheduler struct {
	cfg       Config
	feed      chain.PairFeed
	listener  Discoverer
	evaluator Evaluator
	registry  *state.Registry
	settler   Settler
	events    chan domain.PairCreated
	now       func() time.Time
	log       *slog.Logger

	running   atomic.Bool
	feedUp    atomic.Bool
	lastSweep atomic.Int64
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// New creates a scheduler. feed may be nil, in which case only sweeps run.
func New(cfg Config, feed chain.PairFeed, listener Discoverer, evaluator Evaluator, registry *state.Registry) *Scheduler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	return &Scheduler{
		cfg:       cfg,
		feed:      feed,
		listener:  listener,
		evaluator: evaluator,
		registry:  registry,
		events:    make(chan domain.PairCreated, cfg.QueueSize),
		now:       time.Now,
		log:       slog.Default().With("component", "scheduler"),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// WithClock replaces the source used to age candidates.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// WithSettler makes the loop apply mitigation results from settler. On exit
// the loop waits for every result still outstanding.
func (s *Scheduler) WithSettler(settler Settler) *Scheduler {
	s.settler = settler
	return s
}

// Start runs the loop until ctx is done or Stop is called. It performs one
// sweep immediately so candidates persisted by an earlier run are evaluated
// without waiting a full tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already running")
	}
	defer close(s.done)
	defer s.running.Store(false)
	defer s.settleRemaining()

	feedCtx, cancelFeed := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if s.feed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runFeed(feedCtx)
		}()
	}
	defer wg.Wait()
	defer cancelFeed()

	s.log.Info("Scheduler started", "pending", s.registry.Len(), "wait_period", s.cfg.WaitPeriod, "tick", s.cfg.TickInterval)
	s.Sweep(ctx)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case ev := <-s.events:
			s.handle(ctx, ev)
		case st := <-s.results():
			s.settle(ctx, st)
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Stop asks the loop to exit after the current step.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Done is closed once Start has returned.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// GetStatus returns the current status.
func (s *Scheduler) GetStatus() Status {
	st := Status{
		Running:       s.running.Load(),
		FeedConnected: s.feedUp.Load(),
		Pending:       s.registry.Len(),
	}
	if ts := s.lastSweep.Load(); ts > 0 {
		st.LastSweep = time.Unix(0, ts)
	}
	return st
}

// Sweep evaluates every candidate older than the wait period, oldest first.
// Notifications queued during an evaluation are applied before the next one.
func (s *Scheduler) Sweep(ctx context.Context) {
	s.lastSweep.Store(s.now().UnixNano())

	if left, err := s.registry.RetryDeletes(ctx); err != nil {
		s.log.Warn("Candidate deletes still failing", "outstanding", left, "error", err)
	}

	for _, c := range s.registry.Pending() {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		default:
		}

		if age := c.Age(s.now()); age < s.cfg.WaitPeriod {
			continue
		}

		verdict, err := s.evaluator.Evaluate(ctx, c.Address)
		if err == nil && verdict.Action != "" {
			s.log.Debug("Candidate evaluated", "token", c.Address.Hex(), "verdict", verdict.String())
		}
		s.drain(ctx)
	}
	metrics.CandidatesPending.Set(float64(s.registry.Len()))
}

// Enqueue hands a notification to the loop. It blocks while the queue is full.
// A notification without a receipt time is stamped with the current time.
func (s *Scheduler) Enqueue(ctx context.Context, ev domain.PairCreated) error {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = s.now()
	}
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) drain(ctx context.Context) {
	for {
		select {
		case ev := <-s.events:
			s.handle(ctx, ev)
		case st := <-s.results():
			s.settle(ctx, st)
		default:
			return
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, ev domain.PairCreated) {
	if _, err := s.listener.Handle(ctx, ev); err != nil {
		s.log.Error("Discovery failed", "pair", ev.Pair.Hex(), "error", err)
	}
	metrics.CandidatesPending.Set(float64(s.registry.Len()))
}

// results is nil, and so never ready, without a settler.
func (s *Scheduler) results() <-chan domain.Settlement {
	if s.settler == nil {
		return nil
	}
	return s.settler.Results()
}

func (s *Scheduler) settle(ctx context.Context, st domain.Settlement) {
	if _, err := s.settler.Settle(ctx, st); err != nil {
		s.log.Error("Failed to apply mitigation result", "token", st.Token.Address.Hex(), "tx", st.Tx.Hex(), "error", err)
	}
}

// settleRemaining applies the results of mitigations still in flight. Each
// receipt wait ends at its call deadline plus the confirm grace.
func (s *Scheduler) settleRemaining() {
	if s.settler == nil || s.settler.Pending() == 0 {
		return
	}
	s.log.Info("Waiting for mitigation receipts", "pending", s.settler.Pending())
	for s.settler.Pending() > 0 {
		s.settle(context.Background(), <-s.settler.Results())
	}
}

// runFeed keeps a PairCreated subscription alive until ctx is done,
// resubscribing with backoff whenever it drops.
func (s *Scheduler) runFeed(ctx context.Context) {
	for ctx.Err() == nil {
		var sub ethereum.Subscription
		err := routing.Do(ctx, routing.ResubscribeConfig, func(ctx context.Context) error {
			var err error
			sub, err = s.feed.SubscribePairs(ctx, s.events)
			if err != nil {
				metrics.FeedResubscriptions.Inc()
				s.log.Warn("Subscribe failed", "error", err)
			}
			return err
		})
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error("Pair feed unavailable, continuing with sweeps only", "error", err)
			}
			return
		}

		s.setFeed(true)
		s.log.Info("Subscribed to PairCreated")

		select {
		case err := <-sub.Err():
			if err != nil {
				s.log.Warn("Pair feed dropped, resubscribing", "error", err)
			}
		case <-ctx.Done():
		}
		sub.Unsubscribe()
		s.setFeed(false)
	}
}

func (s *Scheduler) setFeed(up bool) {
	s.feedUp.Store(up)
	if up {
		metrics.FeedConnected.Set(1)
	} else {
		metrics.FeedConnected.Set(0)
	}
}
