package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/storage"
)

// CandidateRepo stores candidates as JSON values of one hash keyed by token.
type CandidateRepo struct {
	client *Client
}

var _ storage.CandidateRepository = (*CandidateRepo)(nil)

// NewCandidateRepo creates a new Redis-backed candidate repository.
func NewCandidateRepo(client *Client) *CandidateRepo {
	return &CandidateRepo{client: client}
}

// Save writes c, replacing any record for the same token.
func (r *CandidateRepo) Save(ctx context.Context, c *domain.CandidateToken) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate: %w", err)
	}
	if err := r.client.rdb.HSet(ctx, r.client.candidatesKey(), addrField(c.Address), data).Err(); err != nil {
		return fmt.Errorf("hset failed: %w", err)
	}
	return nil
}

// Delete removes the record for token.
func (r *CandidateRepo) Delete(ctx context.Context, token common.Address) error {
	if err := r.client.rdb.HDel(ctx, r.client.candidatesKey(), addrField(token)).Err(); err != nil {
		return fmt.Errorf("hdel failed: %w", err)
	}
	return nil
}

// GetAll returns every stored candidate.
func (r *CandidateRepo) GetAll(ctx context.Context) ([]*domain.CandidateToken, error) {
	fields, err := r.client.rdb.HGetAll(ctx, r.client.candidatesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall failed: %w", err)
	}

	out := make([]*domain.CandidateToken, 0, len(fields))
	for field, raw := range fields {
		var c domain.CandidateToken
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate %s: %w", field, err)
		}
		out = append(out, &c)
	}
	return out, nil
}
