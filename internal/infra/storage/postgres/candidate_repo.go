package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/storage"
)

// CandidateRepo implements storage.CandidateRepository using PostgreSQL.
type CandidateRepo struct {
	db *DB
}

var _ storage.CandidateRepository = (*CandidateRepo)(nil)

// NewCandidateRepo creates a new PostgreSQL candidate repository.
func NewCandidateRepo(db *DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

type candidateRow struct {
	Token        string    `db:"token"`
	Pair         string    `db:"pair"`
	IsBaseToken0 bool      `db:"is_base_token0"`
	DiscoveredAt time.Time `db:"discovered_at"`
	Owner        string    `db:"owner"`
	OwnerUnknown bool      `db:"owner_unknown"`
}

func (r candidateRow) toDomain() *domain.CandidateToken {
	return &domain.CandidateToken{
		Address:      common.HexToAddress(r.Token),
		PairAddress:  common.HexToAddress(r.Pair),
		IsBaseToken0: r.IsBaseToken0,
		DiscoveredAt: r.DiscoveredAt.UTC(),
		Owner:        common.HexToAddress(r.Owner),
		OwnerUnknown: r.OwnerUnknown,
	}
}

func hexKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// Save inserts or replaces the record for c's token.
func (r *CandidateRepo) Save(ctx context.Context, c *domain.CandidateToken) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO candidate_tokens (token, pair, is_base_token0, discovered_at, owner, owner_unknown)
		VALUES (:token, :pair, :is_base_token0, :discovered_at, :owner, :owner_unknown)
		ON CONFLICT (token) DO UPDATE SET
			pair = EXCLUDED.pair,
			is_base_token0 = EXCLUDED.is_base_token0,
			discovered_at = EXCLUDED.discovered_at,
			owner = EXCLUDED.owner,
			owner_unknown = EXCLUDED.owner_unknown`,
		candidateRow{
			Token:        hexKey(c.Address),
			Pair:         hexKey(c.PairAddress),
			IsBaseToken0: c.IsBaseToken0,
			DiscoveredAt: c.DiscoveredAt,
			Owner:        hexKey(c.Owner),
			OwnerUnknown: c.OwnerUnknown,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to save candidate: %w", err)
	}
	return nil
}

// Delete removes the record for token.
func (r *CandidateRepo) Delete(ctx context.Context, token common.Address) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM candidate_tokens WHERE token = $1`, hexKey(token)); err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	return nil
}

// GetAll returns every stored candidate, oldest first.
func (r *CandidateRepo) GetAll(ctx context.Context) ([]*domain.CandidateToken, error) {
	var rows []candidateRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT token, pair, is_base_token0, discovered_at, owner, owner_unknown
		FROM candidate_tokens
		ORDER BY discovered_at, token`); err != nil {
		return nil, fmt.Errorf("failed to get all candidates: %w", err)
	}

	out := make([]*domain.CandidateToken, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
