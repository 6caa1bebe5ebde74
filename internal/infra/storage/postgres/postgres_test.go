package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vietddude/honeywatch/internal/core/domain"
)

// setupTestDB starts a PostgreSQL container and applies the migrations.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := NewDB(ctx, Config{URL: dsn})
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestPostgres(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("candidates round trip", func(t *testing.T) {
		repo := NewCandidateRepo(db)
		first := &domain.CandidateToken{
			Address:      common.HexToAddress("0x01"),
			PairAddress:  common.HexToAddress("0x0a"),
			IsBaseToken0: true,
			DiscoveredAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Owner:        common.HexToAddress("0x0e"),
		}
		second := &domain.CandidateToken{
			Address:      common.HexToAddress("0x02"),
			PairAddress:  common.HexToAddress("0x0b"),
			DiscoveredAt: first.DiscoveredAt.Add(time.Minute),
			OwnerUnknown: true,
		}
		require.NoError(t, repo.Save(ctx, second))
		require.NoError(t, repo.Save(ctx, first))

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, first, all[0])
		assert.Equal(t, second, all[1])
		assert.False(t, all[1].HasOwner())

		require.NoError(t, repo.Delete(ctx, first.Address))
		require.NoError(t, repo.Delete(ctx, first.Address))
		all, err = repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, second.Address, all[0].Address)
	})

	t.Run("blacklist round trip", func(t *testing.T) {
		repo := NewBlacklistRepo(db)
		ownerA, ownerB := common.HexToAddress("0x0a"), common.HexToAddress("0x0b")
		t1, t2 := common.HexToAddress("0x01"), common.HexToAddress("0x02")

		require.NoError(t, repo.Add(ctx, ownerB, t2))
		require.NoError(t, repo.Add(ctx, ownerA, t2))
		require.NoError(t, repo.Add(ctx, ownerA, t1))
		require.NoError(t, repo.Add(ctx, ownerA, t1))

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []*domain.BlacklistEntry{
			{Owner: ownerA, Tokens: []common.Address{t1, t2}},
			{Owner: ownerB, Tokens: []common.Address{t2}},
		}, all)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		require.NoError(t, db.Migrate(ctx))
	})
}
