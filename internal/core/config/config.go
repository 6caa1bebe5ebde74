package config

import (
	"time"

	redisclient "github.com/vietddude/honeywatch/internal/infra/redis"
	"github.com/vietddude/honeywatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Logging    LoggingConfig      `yaml:"logging"`
	Chain      ChainConfig        `yaml:"chain"`
	Wallet     WalletConfig       `yaml:"wallet"`
	Mitigation MitigationConfig   `yaml:"mitigation"`
	Heuristics HeuristicsConfig   `yaml:"heuristics"`
	Scheduler  SchedulerConfig    `yaml:"scheduler"`
	Discovery  DiscoveryConfig    `yaml:"discovery"`
	Storage    StorageConfig      `yaml:"storage"`
	Database   postgres.Config    `yaml:"database"`
	Redis      redisclient.Config `yaml:"redis"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
	// AdminToken, when set, is required as a bearer token on admin routes.
	AdminToken string `yaml:"admin_token"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ChainConfig holds the node endpoint and the contracts to watch.
type ChainConfig struct {
	WSURL            string        `yaml:"ws_url"`
	FactoryAddress   string        `yaml:"factory_address"`
	BaseAssetAddress string        `yaml:"base_asset_address"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
}

// WalletConfig holds the signing credential.
type WalletConfig struct {
	PrivateKey string `yaml:"private_key"`
}

// MitigationConfig holds the helper contract call parameters.
type MitigationConfig struct {
	HelperAddress   string        `yaml:"helper_address"`
	GasPriceGwei    string        `yaml:"gas_price_gwei"`
	GasLimit        uint64        `yaml:"gas_limit"`
	ValueEther      string        `yaml:"value_ether"`
	SlippagePercent int64         `yaml:"slippage_percent"`
	DeadlineWindow  time.Duration `yaml:"deadline_window"`
	ConfirmGrace    time.Duration `yaml:"confirm_grace"`
}

// HeuristicsConfig holds the check limits as decimal strings.
type HeuristicsConfig struct {
	MinBaseReserve     string `yaml:"min_base_reserve"`
	ReserveSupplyRatio string `yaml:"reserve_supply_ratio"`
	OwnerBalanceRatio  string `yaml:"owner_balance_ratio"`
	OwnerLPRatio       string `yaml:"owner_lp_ratio"`
	Decimals           int32  `yaml:"decimals"`
}

// SchedulerConfig holds sweep timing.
type SchedulerConfig struct {
	WaitPeriod   time.Duration `yaml:"wait_period"`
	TickInterval time.Duration `yaml:"tick_interval"`
	QueueSize    int           `yaml:"queue_size"`
}

// DiscoveryConfig holds listener options.
type DiscoveryConfig struct {
	TrackUnknownOwner bool `yaml:"track_unknown_owner"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver        string `yaml:"driver"` // file, memory, postgres, redis
	Dir           string `yaml:"dir"`
	TokensFile    string `yaml:"tokens_file"`
	BlacklistFile string `yaml:"blacklist_file"`
}
