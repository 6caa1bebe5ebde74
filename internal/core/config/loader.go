package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Chain.DialTimeout == 0 {
		cfg.Chain.DialTimeout = 15 * time.Second
	}

	m := &cfg.Mitigation
	if m.GasPriceGwei == "" {
		m.GasPriceGwei = "7"
	}
	if m.GasLimit == 0 {
		m.GasLimit = 1_000_000
	}
	if m.ValueEther == "" {
		m.ValueEther = "0.00008"
	}
	if m.SlippagePercent == 0 {
		m.SlippagePercent = 40
	}
	if m.DeadlineWindow == 0 {
		m.DeadlineWindow = 20 * time.Minute
	}
	if m.ConfirmGrace == 0 {
		m.ConfirmGrace = time.Minute
	}

	h := &cfg.Heuristics
	if h.MinBaseReserve == "" {
		h.MinBaseReserve = "10"
	}
	if h.ReserveSupplyRatio == "" {
		h.ReserveSupplyRatio = "0.8"
	}
	if h.OwnerBalanceRatio == "" {
		h.OwnerBalanceRatio = "0.7"
	}
	if h.OwnerLPRatio == "" {
		h.OwnerLPRatio = "0.7"
	}
	if h.Decimals == 0 {
		h.Decimals = 18
	}

	if cfg.Scheduler.WaitPeriod == 0 {
		cfg.Scheduler.WaitPeriod = time.Minute
	}
	if cfg.Scheduler.TickInterval == 0 {
		cfg.Scheduler.TickInterval = 60 * time.Second
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 256
	}

	s := &cfg.Storage
	if s.Driver == "" {
		s.Driver = DriverFile
	}
	if s.Dir == "" {
		s.Dir = "."
	}
	if s.TokensFile == "" {
		s.TokensFile = "tokens.json"
	}
	if s.BlacklistFile == "" {
		s.BlacklistFile = "blacklist.json"
	}

	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "honeywatch"
	}
}

// Validate checks the settings the watcher cannot run without. The signing
// key is not required; without it every mitigation fails and blacklists.
func (cfg *AppConfig) Validate() error {
	var errs []error

	if cfg.Chain.WSURL == "" {
		errs = append(errs, errors.New("chain.ws_url is required"))
	}
	if f := cfg.Logging.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("logging.format: must be text or json, got %q", f))
	}
	for name, v := range map[string]string{
		"chain.factory_address":     cfg.Chain.FactoryAddress,
		"chain.base_asset_address":  cfg.Chain.BaseAssetAddress,
		"mitigation.helper_address": cfg.Mitigation.HelperAddress,
	} {
		if !common.IsHexAddress(v) {
			errs = append(errs, fmt.Errorf("%s: invalid address %q", name, v))
		}
	}

	for name, v := range map[string]string{
		"mitigation.gas_price_gwei":       cfg.Mitigation.GasPriceGwei,
		"mitigation.value_ether":          cfg.Mitigation.ValueEther,
		"heuristics.min_base_reserve":     cfg.Heuristics.MinBaseReserve,
		"heuristics.reserve_supply_ratio": cfg.Heuristics.ReserveSupplyRatio,
		"heuristics.owner_balance_ratio":  cfg.Heuristics.OwnerBalanceRatio,
		"heuristics.owner_lp_ratio":       cfg.Heuristics.OwnerLPRatio,
	} {
		d, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if d.IsNegative() {
			errs = append(errs, fmt.Errorf("%s: must not be negative", name))
		}
	}

	switch cfg.Storage.Driver {
	case DriverFile, DriverMemory:
	case DriverPostgres:
		if cfg.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres driver"))
		}
	case DriverRedis:
		if cfg.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}

	return errors.Join(errs...)
}
