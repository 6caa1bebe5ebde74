package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/vietddude/honeywatch/internal/core/config"
	redisclient "github.com/vietddude/honeywatch/internal/infra/redis"
	"github.com/vietddude/honeywatch/internal/infra/storage"
	"github.com/vietddude/honeywatch/internal/infra/storage/file"
	"github.com/vietddude/honeywatch/internal/infra/storage/memory"
	"github.com/vietddude/honeywatch/internal/infra/storage/postgres"
)

// Stores bundles the two repositories of the configured backend together
// with the connections that back them.
type Stores struct {
	Candidates storage.CandidateRepository
	Blacklist  storage.BlacklistRepository
	db         *postgres.DB
	redis      *redisclient.Client
	closers    []func() error
}

// OpenStores opens the backend selected by cfg.Storage.Driver.
func OpenStores(ctx context.Context, cfg *config.AppConfig) (*Stores, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		slog.Info("Using PostgreSQL storage")
		return &Stores{
			Candidates: postgres.NewCandidateRepo(db),
			Blacklist:  postgres.NewBlacklistRepo(db),
			db:         db,
			closers:    []func() error{db.Close},
		}, nil

	case config.DriverRedis:
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		slog.Info("Using Redis storage", "prefix", cfg.Redis.Prefix)
		return &Stores{
			Candidates: redisclient.NewCandidateRepo(client),
			Blacklist:  redisclient.NewBlacklistRepo(client),
			redis:      client,
			closers:    []func() error{client.Close},
		}, nil

	case config.DriverMemory:
		store := memory.NewMemoryStorage()
		slog.Warn("Using memory storage, state is lost on exit")
		return &Stores{
			Candidates: memory.NewCandidateRepo(store),
			Blacklist:  memory.NewBlacklistRepo(store),
		}, nil

	case config.DriverFile, "":
		tokensPath := filepath.Join(cfg.Storage.Dir, cfg.Storage.TokensFile)
		candidates, err := file.OpenCandidateRepo(tokensPath)
		if err != nil {
			return nil, err
		}
		blacklistPath := filepath.Join(cfg.Storage.Dir, cfg.Storage.BlacklistFile)
		blacklist, err := file.OpenBlacklistRepo(blacklistPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Using file storage", "tokens", tokensPath, "blacklist", blacklistPath)
		return &Stores{Candidates: candidates, Blacklist: blacklist}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// StartMetricsCollector reports connection pool usage when a database backs
// the stores.
func (s *Stores) StartMetricsCollector(ctx context.Context) {
	if s.db != nil {
		s.db.StartMetricsCollector(ctx)
	}
}

// Ping checks the database or redis connection. File and memory stores have
// nothing to check.
func (s *Stores) Ping(ctx context.Context) error {
	switch {
	case s.db != nil:
		return s.db.Health(ctx)
	case s.redis != nil:
		return s.redis.Health(ctx)
	}
	return nil
}

// Close releases the backend connections.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}
