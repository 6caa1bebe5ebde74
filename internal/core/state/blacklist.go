package state

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/storage"
)

// Blacklist maps owners to the set of tokens attributed to them. Entries are
// permanent.
type Blacklist struct {
	repo    storage.BlacklistRepository
	mu      sync.RWMutex
	entries map[common.Address]domain.TokenSet
}

// LoadBlacklist builds a blacklist from everything repo currently holds.
func LoadBlacklist(ctx context.Context, repo storage.BlacklistRepository) (*Blacklist, error) {
	all, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load blacklist: %w", err)
	}

	entries := make(map[common.Address]domain.TokenSet, len(all))
	for _, e := range all {
		set, ok := entries[e.Owner]
		if !ok {
			set = make(domain.TokenSet, len(e.Tokens))
			entries[e.Owner] = set
		}
		for _, t := range e.Tokens {
			set.Add(t)
		}
	}
	return &Blacklist{repo: repo, entries: entries}, nil
}

// Add attributes token to owner and persists it before returning. It reports
// false when the pair was already present.
func (b *Blacklist) Add(ctx context.Context, owner, token common.Address) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.entries[owner].Contains(token) {
		return false, nil
	}
	if err := b.repo.Add(ctx, owner, token); err != nil {
		return false, fmt.Errorf("failed to blacklist %s under %s: %w", token.Hex(), owner.Hex(), err)
	}
	set, ok := b.entries[owner]
	if !ok {
		set = make(domain.TokenSet)
		b.entries[owner] = set
	}
	set.Add(token)
	return true, nil
}

// Contains reports whether token is listed under owner.
func (b *Blacklist) Contains(owner, token common.Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.entries[owner].Contains(token)
}

// Entries returns a snapshot ordered by owner address.
func (b *Blacklist) Entries() []*domain.BlacklistEntry {
	b.mu.RLock()
	out := make([]*domain.BlacklistEntry, 0, len(b.entries))
	for owner, set := range b.entries {
		out = append(out, &domain.BlacklistEntry{Owner: owner, Tokens: set.Sorted()})
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Owner.Bytes(), out[j].Owner.Bytes()) < 0
	})
	return out
}

// Size returns the number of owners and the number of blacklisted tokens.
func (b *Blacklist) Size() (owners, tokens int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, set := range b.entries {
		tokens += len(set)
	}
	return len(b.entries), tokens
}
