package redis

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/honeywatch/internal/core/domain"
	"github.com/vietddude/honeywatch/internal/infra/storage"
)

// BlacklistRepo keeps a set of owners and one token set per owner.
type BlacklistRepo struct {
	client *Client
}

var _ storage.BlacklistRepository = (*BlacklistRepo)(nil)

// NewBlacklistRepo creates a new Redis-backed blacklist repository.
func NewBlacklistRepo(client *Client) *BlacklistRepo {
	return &BlacklistRepo{client: client}
}

// Add records token under owner. Both writes run in one MULTI block.
func (r *BlacklistRepo) Add(ctx context.Context, owner, token common.Address) error {
	_, err := r.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.client.ownersKey(), addrField(owner))
		pipe.SAdd(ctx, r.client.ownerKey(owner), addrField(token))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add blacklist entry: %w", err)
	}
	return nil
}

// GetAll returns every owner with its tokens.
func (r *BlacklistRepo) GetAll(ctx context.Context) ([]*domain.BlacklistEntry, error) {
	owners, err := r.client.rdb.SMembers(ctx, r.client.ownersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers failed: %w", err)
	}
	if len(owners) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringSliceCmd, len(owners))
	_, err = r.client.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, o := range owners {
			cmds[i] = pipe.SMembers(ctx, r.client.ownerKey(common.HexToAddress(o)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read owner sets: %w", err)
	}

	out := make([]*domain.BlacklistEntry, 0, len(owners))
	for i, o := range owners {
		tokens := make([]common.Address, 0, len(cmds[i].Val()))
		for _, t := range cmds[i].Val() {
			tokens = append(tokens, common.HexToAddress(t))
		}
		domain.SortAddresses(tokens)
		out = append(out, &domain.BlacklistEntry{Owner: common.HexToAddress(o), Tokens: tokens})
	}
	return out, nil
}
