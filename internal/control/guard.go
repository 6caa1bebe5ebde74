// Package control wires the screening components into a runnable service.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/vietddude/honeywatch/internal/core/config"
	"github.com/vietddude/honeywatch/internal/core/state"
	"github.com/vietddude/honeywatch/internal/infra/chain"
	"github.com/vietddude/honeywatch/internal/infra/chain/evm"
	"github.com/vietddude/honeywatch/internal/screening/discovery"
	"github.com/vietddude/honeywatch/internal/screening/health"
	"github.com/vietddude/honeywatch/internal/screening/heuristic"
	"github.com/vietddude/honeywatch/internal/screening/mitigation"
	"github.com/vietddude/honeywatch/internal/screening/scheduler"
)

// Chain groups the chain capabilities the guard depends on.
type Chain interface {
	chain.Reader
	chain.PairFeed
	chain.Mitigator
}

// Guard is the main application struct that manages the screening lifecycle.
type Guard struct {
	cfg          *config.AppConfig
	stores       *Stores
	chain        Chain
	closeChain   func()
	registry     *state.Registry
	blacklist    *state.Blacklist
	scheduler    *scheduler.Scheduler
	settler      scheduler.Settler
	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger
}

// NewGuard dials the node, opens the configured stores and builds every
// component.
func NewGuard(ctx context.Context, cfg *config.AppConfig) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Chain.DialTimeout)
	defer cancel()
	adapter, err := evm.Dial(dialCtx, cfg.Chain.WSURL, evm.Config{
		Factory:    common.HexToAddress(cfg.Chain.FactoryAddress),
		Helper:     common.HexToAddress(cfg.Mitigation.HelperAddress),
		PrivateKey: cfg.Wallet.PrivateKey,
	})
	if err != nil {
		return nil, err
	}
	if adapter.From() == (common.Address{}) {
		slog.Warn("No signing key configured, every mitigation will fail and blacklist")
	}

	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		adapter.Close()
		return nil, err
	}

	g, err := newGuard(ctx, cfg, stores, adapter)
	if err != nil {
		_ = stores.Close()
		adapter.Close()
		return nil, err
	}
	g.closeChain = adapter.Close
	return g, nil
}

func newGuard(ctx context.Context, cfg *config.AppConfig, stores *Stores, c Chain) (*Guard, error) {
	registry, err := state.LoadRegistry(ctx, stores.Candidates)
	if err != nil {
		return nil, err
	}
	blacklist, err := state.LoadBlacklist(ctx, stores.Blacklist)
	if err != nil {
		return nil, err
	}

	thresholds, err := Thresholds(cfg.Heuristics)
	if err != nil {
		return nil, err
	}
	mitigationCfg, err := MitigationConfig(cfg.Mitigation)
	if err != nil {
		return nil, err
	}

	listener := discovery.NewListener(discovery.Config{
		BaseAsset:         common.HexToAddress(cfg.Chain.BaseAssetAddress),
		TrackUnknownOwner: cfg.Discovery.TrackUnknownOwner,
	}, c, registry, blacklist)
	executor := mitigation.NewExecutor(mitigationCfg, c, blacklist)
	evaluator := heuristic.NewEvaluator(thresholds, c, registry, blacklist, executor)

	sched := scheduler.New(scheduler.Config{
		WaitPeriod:   cfg.Scheduler.WaitPeriod,
		TickInterval: cfg.Scheduler.TickInterval,
		QueueSize:    cfg.Scheduler.QueueSize,
	}, c, listener, evaluator, registry).WithSettler(executor)

	healthMon := health.NewMonitor(sched, blacklist, cfg.Scheduler.TickInterval).
		WithStoreCheck(stores.Ping)
	owners, tokens := blacklist.Size()
	slog.Info("State loaded", "pending", registry.Len(), "blacklisted_owners", owners, "blacklisted_tokens", tokens)

	return &Guard{
		cfg:          cfg,
		stores:       stores,
		chain:        c,
		registry:     registry,
		blacklist:    blacklist,
		scheduler:    sched,
		settler:      executor,
		healthMon:    healthMon,
		healthServer: health.NewServer(healthMon, cfg.Server.Port).WithAdmin(blacklist, cfg.Server.AdminToken),
		log:          slog.Default(),
	}, nil
}

// Thresholds converts the configured decimal strings.
func Thresholds(cfg config.HeuristicsConfig) (heuristic.Thresholds, error) {
	var th heuristic.Thresholds
	var err error
	if th.MinBaseReserve, err = decimal.NewFromString(cfg.MinBaseReserve); err != nil {
		return th, fmt.Errorf("min_base_reserve: %w", err)
	}
	if th.ReserveSupplyRatio, err = decimal.NewFromString(cfg.ReserveSupplyRatio); err != nil {
		return th, fmt.Errorf("reserve_supply_ratio: %w", err)
	}
	if th.OwnerBalanceRatio, err = decimal.NewFromString(cfg.OwnerBalanceRatio); err != nil {
		return th, fmt.Errorf("owner_balance_ratio: %w", err)
	}
	if th.OwnerLPRatio, err = decimal.NewFromString(cfg.OwnerLPRatio); err != nil {
		return th, fmt.Errorf("owner_lp_ratio: %w", err)
	}
	th.Decimals = cfg.Decimals
	return th, nil
}

// MitigationConfig converts the configured amounts to wei.
func MitigationConfig(cfg config.MitigationConfig) (mitigation.Config, error) {
	value, err := decimal.NewFromString(cfg.ValueEther)
	if err != nil {
		return mitigation.Config{}, fmt.Errorf("value_ether: %w", err)
	}
	gasPrice, err := decimal.NewFromString(cfg.GasPriceGwei)
	if err != nil {
		return mitigation.Config{}, fmt.Errorf("gas_price_gwei: %w", err)
	}
	return mitigation.Config{
		SlippagePercent: cfg.SlippagePercent,
		DeadlineWindow:  cfg.DeadlineWindow,
		ConfirmGrace:    cfg.ConfirmGrace,
		Value:           mitigation.EtherToWei(value),
		GasPrice:        mitigation.GweiToWei(gasPrice),
		GasLimit:        cfg.GasLimit,
	}, nil
}

// Start starts the guard and all its components. It returns immediately.
func (g *Guard) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := g.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("Health server failed", "error", err)
		}
	}()

	g.stores.StartMetricsCollector(ctx)

	go func() {
		if err := g.scheduler.Start(ctx); err != nil {
			g.log.Error("Scheduler failed", "error", err)
		}
	}()

	go g.runMetricsUpdater(ctx)

	return nil
}

// Stop stops the guard. An evaluation in progress and any mitigation receipts
// still outstanding are allowed to finish while ctx permits. When ctx expires
// first the stores stay open so the loop's last writes are not cut off.
func (g *Guard) Stop(ctx context.Context) error {
	g.log.Info("Stopping guard...")

	var errs []error
	stopped := true
	_ = g.scheduler.Stop()
	select {
	case <-g.scheduler.Done():
	case <-ctx.Done():
		stopped = false
		errs = append(errs, fmt.Errorf("scheduler did not stop: %w", ctx.Err()))
	}

	if err := g.healthServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("health server: %w", err))
	}
	// The loop may still be writing; its connections are left to process exit.
	if stopped {
		if err := g.stores.Close(); err != nil {
			errs = append(errs, fmt.Errorf("stores: %w", err))
		}
	} else {
		g.log.Warn("Scheduler still running, leaving stores open", "pending_mitigations", g.settler.Pending())
	}
	if g.closeChain != nil {
		g.closeChain()
	}
	return errors.Join(errs...)
}

// Health returns the current health report.
func (g *Guard) Health(ctx context.Context) health.Report {
	return g.healthMon.CheckHealth(ctx)
}

func (g *Guard) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	g.healthMon.UpdateGauges(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.healthMon.UpdateGauges(ctx)
		}
	}
}
