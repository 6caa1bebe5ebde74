package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/storage"
)

// BlacklistRepo implements storage.BlacklistRepository using PostgreSQL.
type BlacklistRepo struct {
	db *DB
}

var _ storage.BlacklistRepository = (*BlacklistRepo)(nil)

// NewBlacklistRepo creates a new PostgreSQL blacklist repository.
func NewBlacklistRepo(db *DB) *BlacklistRepo {
	return &BlacklistRepo{db: db}
}

// Add records token under owner. Recording an existing pair succeeds.
func (r *BlacklistRepo) Add(ctx context.Context, owner, token common.Address) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO blacklist_entries (owner, token) VALUES ($1, $2)`,
		hexKey(owner), hexKey(token),
	)
	if err != nil && !isDuplicateKeyError(err) {
		return fmt.Errorf("failed to add blacklist entry: %w", err)
	}
	return nil
}

type blacklistRow struct {
	Owner string `db:"owner"`
	Token string `db:"token"`
}

// GetAll returns every owner with its tokens, grouped by owner.
func (r *BlacklistRepo) GetAll(ctx context.Context) ([]*domain.BlacklistEntry, error) {
	var rows []blacklistRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT owner, token FROM blacklist_entries ORDER BY owner, token`); err != nil {
		return nil, fmt.Errorf("failed to get blacklist: %w", err)
	}

	var out []*domain.BlacklistEntry
	for _, row := range rows {
		owner := common.HexToAddress(row.Owner)
		if n := len(out); n == 0 || out[n-1].Owner != owner {
			out = append(out, &domain.BlacklistEntry{Owner: owner})
		}
		last := out[len(out)-1]
		last.Tokens = append(last.Tokens, common.HexToAddress(row.Token))
	}
	return out, nil
}
