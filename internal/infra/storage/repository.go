package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/honeywatch/internal/core/domain"
)

// CandidateRepository handles durable candidate token storage
type CandidateRepository interface {
	// Save inserts or replaces the candidate keyed by its token address
	Save(ctx context.Context, candidate *domain.CandidateToken) error

	// Delete removes the candidate; deleting an absent token is not an error
	Delete(ctx context.Context, token common.Address) error

	// GetAll loads every stored candidate
	GetAll(ctx context.Context) ([]*domain.CandidateToken, error)
}

// BlacklistRepository handles durable blacklist storage
type BlacklistRepository interface {
	// Add attributes token to owner; adding an existing pair is a no-op
	Add(ctx context.Context, owner, token common.Address) error

	// GetAll loads every blacklist entry
	GetAll(ctx context.Context) ([]*domain.BlacklistEntry, error)
}
