// Package state holds the in-memory views of the candidate registry and the
// blacklist, each backed by a durable repository. Every mutation writes
// through to the repository before the in-memory view changes.
package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/storage"
)

// Registry tracks tokens that were discovered but not yet evaluated.
type Registry struct {
	repo  storage.CandidateRepository
	mu    sync.RWMutex
	items map[common.Address]*domain.CandidateToken
	// stale holds removed tokens whose durable delete failed.
	stale map[common.Address]struct{}
}

// LoadRegistry builds a registry from everything repo currently holds.
func LoadRegistry(ctx context.Context, repo storage.CandidateRepository) (*Registry, error) {
	all, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	items := make(map[common.Address]*domain.CandidateToken, len(all))
	for _, c := range all {
		items[c.Address] = c
	}
	return &Registry{repo: repo, items: items, stale: make(map[common.Address]struct{})}, nil
}

// Add persists and tracks c. It returns false without touching the existing
// record when the token is already tracked.
func (r *Registry) Add(ctx context.Context, c *domain.CandidateToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[c.Address]; ok {
		return false, nil
	}
	if err := r.repo.Save(ctx, c); err != nil {
		return false, fmt.Errorf("failed to save candidate %s: %w", c.Address.Hex(), err)
	}
	delete(r.stale, c.Address)
	r.items[c.Address] = c.Clone()
	return true, nil
}

// Get returns a copy of the candidate for token.
func (r *Registry) Get(token common.Address) (*domain.CandidateToken, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[token]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Remove stops tracking token. The in-memory entry is dropped even when the
// durable delete fails, so a candidate is never due twice; the failed delete is
// retried by RetryDeletes and the error is returned. Removing an untracked
// token is a no-op.
func (r *Registry) Remove(ctx context.Context, token common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[token]; !ok {
		return nil
	}
	delete(r.items, token)
	if err := r.repo.Delete(ctx, token); err != nil {
		r.stale[token] = struct{}{}
		return fmt.Errorf("failed to delete candidate %s: %w", token.Hex(), err)
	}
	return nil
}

// RetryDeletes repeats durable deletes that failed in Remove. It returns the
// number still outstanding.
func (r *Registry) RetryDeletes(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for token := range r.stale {
		if err := r.repo.Delete(ctx, token); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete candidate %s: %w", token.Hex(), err))
			continue
		}
		delete(r.stale, token)
	}
	return len(r.stale), errors.Join(errs...)
}

// Pending returns copies of all candidates, oldest discovery first.
func (r *Registry) Pending() []*domain.CandidateToken {
	r.mu.RLock()
	out := make([]*domain.CandidateToken, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DiscoveredAt.Equal(out[j].DiscoveredAt) {
			return out[i].DiscoveredAt.Before(out[j].DiscoveredAt)
		}
		return bytes.Compare(out[i].Address.Bytes(), out[j].Address.Bytes()) < 0
	})
	return out
}

// Len returns the number of tracked candidates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
