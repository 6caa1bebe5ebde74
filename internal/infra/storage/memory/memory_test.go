package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/honeywatch/internal/core/domain"
)

func TestCandidateRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewCandidateRepo(NewMemoryStorage())

	c := &domain.CandidateToken{
		Address:      common.HexToAddress("0x01"),
		PairAddress:  common.HexToAddress("0x0a"),
		DiscoveredAt: time.Now(),
	}
	if err := repo.Save(ctx, c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store
	c.PairAddress = common.HexToAddress("0xff")

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 || all[0].PairAddress != common.HexToAddress("0x0a") {
		t.Fatalf("unexpected candidates: %+v", all)
	}

	if err := repo.Delete(ctx, c.Address); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	all, _ = repo.GetAll(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty store, got %d", len(all))
	}
}

func TestBlacklistRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewBlacklistRepo(NewMemoryStorage())
	owner := common.HexToAddress("0x0e")

	for _, tok := range []string{"0x02", "0x01", "0x02"} {
		if err := repo.Add(ctx, owner, common.HexToAddress(tok)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 || len(all[0].Tokens) != 2 {
		t.Fatalf("unexpected entries: %+v", all)
	}
	if all[0].Tokens[0] != common.HexToAddress("0x01") {
		t.Errorf("expected sorted tokens, got %v", all[0].Tokens)
	}
}
