package file

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/storage"
)

// BlacklistRepo implements storage.BlacklistRepository on a JSON document
// mapping owner address to a list of token addresses.
type BlacklistRepo struct {
	doc  document[map[common.Address][]common.Address]
	mu   sync.Mutex
	data map[common.Address][]common.Address
}

var _ storage.BlacklistRepository = (*BlacklistRepo)(nil)

// OpenBlacklistRepo loads (or creates) the document at path. Duplicate
// tokens left by older writers are collapsed on load.
func OpenBlacklistRepo(path string) (*BlacklistRepo, error) {
	r := &BlacklistRepo{
		doc: document[map[common.Address][]common.Address]{
			path:  path,
			log:   slog.Default().With("component", "blacklist_file"),
			empty: func() map[common.Address][]common.Address {
				return make(map[common.Address][]common.Address)
			},
		},
	}
	if err := r.doc.load(&r.data); err != nil {
		return nil, err
	}
	if r.data == nil {
		r.data = make(map[common.Address][]common.Address)
	}
	for owner, tokens := range r.data {
		r.data[owner] = union(tokens, nil)
	}
	return r, nil
}

// Add merges the document as it is on disk before writing, so entries added
// by another process since the last write are kept.
func (r *BlacklistRepo) Add(ctx context.Context, owner, token common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[common.Address][]common.Address, len(r.data)+1)
	for o, tokens := range r.data {
		next[o] = tokens
	}
	var onDisk map[common.Address][]common.Address
	ok, err := r.doc.peek(&onDisk)
	if err != nil {
		return err
	}
	if ok {
		for o, tokens := range onDisk {
			next[o] = union(next[o], tokens)
		}
	}

	if slices.Contains(next[owner], token) {
		r.data = next
		return nil
	}
	next[owner] = union(next[owner], []common.Address{token})

	if err := r.doc.write(next); err != nil {
		return err
	}
	r.data = next
	return nil
}

// union returns the sorted, duplicate-free union of a and b.
func union(a, b []common.Address) []common.Address {
	set := make(domain.TokenSet, len(a)+len(b))
	for _, t := range a {
		set.Add(t)
	}
	for _, t := range b {
		set.Add(t)
	}
	return set.Sorted()
}

func (r *BlacklistRepo) GetAll(ctx context.Context) ([]*domain.BlacklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.BlacklistEntry, 0, len(r.data))
	for owner, tokens := range r.data {
		out = append(out, &domain.BlacklistEntry{Owner: owner, Tokens: slices.Clone(tokens)})
	}
	return out, nil
}
