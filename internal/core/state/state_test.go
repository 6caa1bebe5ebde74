package state

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/storage/memory"
)

var errDisk = errors.New("disk full")

type failingCandidates struct {
	*memory.CandidateRepo
	failSave, failDelete bool
}

func (f *failingCandidates) Save(ctx context.Context, c *domain.CandidateToken) error {
	if f.failSave {
		return errDisk
	}
	return f.CandidateRepo.Save(ctx, c)
}

func (f *failingCandidates) Delete(ctx context.Context, token common.Address) error {
	if f.failDelete {
		return errDisk
	}
	return f.CandidateRepo.Delete(ctx, token)
}

type failingBlacklist struct {
	*memory.BlacklistRepo
}

func (failingBlacklist) Add(context.Context, common.Address, common.Address) error {
	return errDisk
}

func candidate(n int64, at time.Time) *domain.CandidateToken {
	addr := common.BigToAddress(big.NewInt(n))
	return &domain.CandidateToken{Address: addr, PairAddress: addr, DiscoveredAt: at}
}

func TestRegistry_AddGetRemove(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCandidateRepo(memory.NewMemoryStorage())
	r, err := LoadRegistry(ctx, repo)
	require.NoError(t, err)

	c := candidate(1, time.Now())
	added, err := r.Add(ctx, c)
	require.NoError(t, err)
	assert.True(t, added)

	dup := c.Clone()
	dup.PairAddress = common.HexToAddress("0xff")
	added, err = r.Add(ctx, dup)
	require.NoError(t, err)
	assert.False(t, added)

	got, ok := r.Get(c.Address)
	require.True(t, ok)
	assert.Equal(t, c.PairAddress, got.PairAddress)

	got.Owner = common.HexToAddress("0x99")
	again, _ := r.Get(c.Address)
	assert.NotEqual(t, got.Owner, again.Owner, "Get must return a copy")

	require.NoError(t, r.Remove(ctx, c.Address))
	require.NoError(t, r.Remove(ctx, c.Address))
	assert.Equal(t, 0, r.Len())

	stored, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRegistry_ReloadsFromRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCandidateRepo(memory.NewMemoryStorage())
	first, err := LoadRegistry(ctx, repo)
	require.NoError(t, err)

	now := time.Now()
	_, err = first.Add(ctx, candidate(1, now))
	require.NoError(t, err)
	_, err = first.Add(ctx, candidate(2, now.Add(-time.Minute)))
	require.NoError(t, err)

	second, err := LoadRegistry(ctx, repo)
	require.NoError(t, err)
	pending := second.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, candidate(2, now).Address, pending[0].Address)
	assert.Equal(t, candidate(1, now).Address, pending[1].Address)
}

func TestRegistry_SaveFailureLeavesMemoryUntouched(t *testing.T) {
	ctx := context.Background()
	repo := &failingCandidates{CandidateRepo: memory.NewCandidateRepo(memory.NewMemoryStorage())}
	r, err := LoadRegistry(ctx, repo)
	require.NoError(t, err)

	c := candidate(1, time.Now())
	repo.failSave = true
	_, err = r.Add(ctx, c)
	require.ErrorIs(t, err, errDisk)
	assert.Equal(t, 0, r.Len())
	stored, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRegistry_DeleteFailureStillRemoves(t *testing.T) {
	ctx := context.Background()
	repo := &failingCandidates{CandidateRepo: memory.NewCandidateRepo(memory.NewMemoryStorage())}
	r, err := LoadRegistry(ctx, repo)
	require.NoError(t, err)

	c := candidate(1, time.Now())
	_, err = r.Add(ctx, c)
	require.NoError(t, err)

	repo.failDelete = true
	require.ErrorIs(t, r.Remove(ctx, c.Address), errDisk)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Pending())
	_, ok := r.Get(c.Address)
	assert.False(t, ok)

	// Second removal is a no-op, the record is already out of memory.
	require.NoError(t, r.Remove(ctx, c.Address))

	left, err := r.RetryDeletes(ctx)
	require.ErrorIs(t, err, errDisk)
	assert.Equal(t, 1, left)

	repo.failDelete = false
	left, err = r.RetryDeletes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
	stored, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestBlacklist_SetSemantics(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBlacklistRepo(memory.NewMemoryStorage())
	b, err := LoadBlacklist(ctx, repo)
	require.NoError(t, err)

	owner := common.HexToAddress("0x0e")
	t1, t2 := common.HexToAddress("0x01"), common.HexToAddress("0x02")

	added, err := b.Add(ctx, owner, t2)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = b.Add(ctx, owner, t2)
	require.NoError(t, err)
	assert.False(t, added)
	_, err = b.Add(ctx, owner, t1)
	require.NoError(t, err)

	assert.True(t, b.Contains(owner, t1))
	assert.False(t, b.Contains(common.HexToAddress("0x0f"), t1))

	owners, tokens := b.Size()
	assert.Equal(t, 1, owners)
	assert.Equal(t, 2, tokens)

	reloaded, err := LoadBlacklist(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, []*domain.BlacklistEntry{{Owner: owner, Tokens: []common.Address{t1, t2}}}, reloaded.Entries())
}

func TestBlacklist_WriteFailure(t *testing.T) {
	ctx := context.Background()
	b, err := LoadBlacklist(ctx, failingBlacklist{memory.NewBlacklistRepo(memory.NewMemoryStorage())})
	require.NoError(t, err)

	owner, token := common.HexToAddress("0x0e"), common.HexToAddress("0x01")
	_, err = b.Add(ctx, owner, token)
	require.ErrorIs(t, err, errDisk)
	assert.False(t, b.Contains(owner, token))
}
