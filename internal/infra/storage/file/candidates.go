package file

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/storage"
)

// candidateRecord is the on-disk shape of one tokens.json value.
type candidateRecord struct {
	PairAddress  common.Address `json:"pairAddress"`
	IsBaseToken0 bool           `json:"isBaseToken0"`
	DiscoveredAt time.Time      `json:"discoveredAt"`
	Owner        common.Address `json:"owner"`
	OwnerUnknown bool           `json:"ownerUnknown,omitempty"`

	// Older documents carry the slot flag as isToken0 and the discovery time
	// as epoch milliseconds. Both are read once and dropped on the next write.
	LegacyIsToken0  *bool `json:"isToken0,omitempty"`
	LegacyTimestamp int64 `json:"timestamp,omitempty"`
}

// upgrade moves legacy fields into their current names.
func (rec candidateRecord) upgrade() candidateRecord {
	if rec.LegacyIsToken0 != nil {
		rec.IsBaseToken0 = *rec.LegacyIsToken0
		rec.LegacyIsToken0 = nil
	}
	if rec.DiscoveredAt.IsZero() && rec.LegacyTimestamp != 0 {
		rec.DiscoveredAt = time.UnixMilli(rec.LegacyTimestamp).UTC()
	}
	rec.LegacyTimestamp = 0
	return rec
}

// CandidateRepo implements storage.CandidateRepository on a JSON document
// keyed by token address.
type CandidateRepo struct {
	doc  document[map[common.Address]candidateRecord]
	mu   sync.Mutex
	data map[common.Address]candidateRecord
}

var _ storage.CandidateRepository = (*CandidateRepo)(nil)

// OpenCandidateRepo loads (or creates) the document at path.
func OpenCandidateRepo(path string) (*CandidateRepo, error) {
	r := &CandidateRepo{
		doc: document[map[common.Address]candidateRecord]{
			path:  path,
			log:   slog.Default().With("component", "candidate_file"),
			empty: func() map[common.Address]candidateRecord {
				return make(map[common.Address]candidateRecord)
			},
		},
	}
	if err := r.doc.load(&r.data); err != nil {
		return nil, err
	}
	if r.data == nil {
		r.data = make(map[common.Address]candidateRecord)
	}
	for addr, rec := range r.data {
		r.data[addr] = rec.upgrade()
	}
	return r, nil
}

func (r *CandidateRepo) Save(ctx context.Context, c *domain.CandidateToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(r.data)
	next[c.Address] = candidateRecord{
		PairAddress:  c.PairAddress,
		IsBaseToken0: c.IsBaseToken0,
		DiscoveredAt: c.DiscoveredAt,
		Owner:        c.Owner,
		OwnerUnknown: c.OwnerUnknown,
	}
	if err := r.doc.write(next); err != nil {
		return err
	}
	r.data = next
	return nil
}

func (r *CandidateRepo) Delete(ctx context.Context, token common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[token]; !ok {
		return nil
	}
	next := maps.Clone(r.data)
	delete(next, token)
	if err := r.doc.write(next); err != nil {
		return err
	}
	r.data = next
	return nil
}

func (r *CandidateRepo) GetAll(ctx context.Context) ([]*domain.CandidateToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.CandidateToken, 0, len(r.data))
	for addr, rec := range r.data {
		out = append(out, &domain.CandidateToken{
			Address:      addr,
			PairAddress:  rec.PairAddress,
			IsBaseToken0: rec.IsBaseToken0,
			DiscoveredAt: rec.DiscoveredAt,
			Owner:        rec.Owner,
			OwnerUnknown: rec.OwnerUnknown,
		})
	}
	return out, nil
}
