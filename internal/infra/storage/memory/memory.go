package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/storage"
)

type MemoryStorage struct {
	candidates map[common.Address]*domain.CandidateToken
	blacklist  map[common.Address]domain.TokenSet
	mu         sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		candidates: make(map[common.Address]*domain.CandidateToken),
		blacklist:  make(map[common.Address]domain.TokenSet),
	}
}

// -----------------------------------------------------------------------------
// Candidate Repository
// -----------------------------------------------------------------------------

type CandidateRepo struct {
	store *MemoryStorage
}

var _ storage.CandidateRepository = (*CandidateRepo)(nil)

func NewCandidateRepo(store *MemoryStorage) *CandidateRepo {
	return &CandidateRepo{store: store}
}

func (r *CandidateRepo) Save(ctx context.Context, c *domain.CandidateToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.candidates[c.Address] = c.Clone()
	return nil
}

func (r *CandidateRepo) Delete(ctx context.Context, token common.Address) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.candidates, token)
	return nil
}

func (r *CandidateRepo) GetAll(ctx context.Context) ([]*domain.CandidateToken, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domain.CandidateToken, 0, len(r.store.candidates))
	for _, c := range r.store.candidates {
		out = append(out, c.Clone())
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Blacklist Repository
// -----------------------------------------------------------------------------

type BlacklistRepo struct {
	store *MemoryStorage
}

var _ storage.BlacklistRepository = (*BlacklistRepo)(nil)

func NewBlacklistRepo(store *MemoryStorage) *BlacklistRepo {
	return &BlacklistRepo{store: store}
}

func (r *BlacklistRepo) Add(ctx context.Context, owner, token common.Address) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	set, ok := r.store.blacklist[owner]
	if !ok {
		set = make(domain.TokenSet)
		r.store.blacklist[owner] = set
	}
	set.Add(token)
	return nil
}

func (r *BlacklistRepo) GetAll(ctx context.Context) ([]*domain.BlacklistEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domain.BlacklistEntry, 0, len(r.store.blacklist))
	for owner, set := range r.store.blacklist {
		out = append(out, &domain.BlacklistEntry{Owner: owner, Tokens: set.Sorted()})
	}
	return out, nil
}
