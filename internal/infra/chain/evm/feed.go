package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/vietddude/honeywatch/internal/core/domain"
)

// PairCreatedTopic is the event signature hash of PairCreated.
var PairCreatedTopic = factoryABI.Events["PairCreated"].ID

// SubscribePairs subscribes to PairCreated logs of the configured factory and
// forwards decoded notifications to sink, stamped with their receipt time.
// Removed (reorged) logs are dropped.
func (a *EVMAdapter) SubscribePairs(ctx context.Context, sink chan<- domain.PairCreated) (ethereum.Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{a.factory},
		Topics:    [][]common.Hash{{PairCreatedTopic}},
	}

	logs := make(chan types.Log, 64)
	sub, err := a.backend.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to PairCreated: %w", err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case lg := <-logs:
				if lg.Removed {
					continue
				}
				ev, err := DecodePairCreated(lg)
				if err != nil {
					a.log.Warn("Skipping undecodable PairCreated log", "tx", lg.TxHash.Hex(), "error", err)
					continue
				}
				ev.ReceivedAt = a.now()
				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// DecodePairCreated extracts the two tokens and the pair from a factory log.
func DecodePairCreated(lg types.Log) (domain.PairCreated, error) {
	if len(lg.Topics) != 3 || lg.Topics[0] != PairCreatedTopic {
		return domain.PairCreated{}, fmt.Errorf("not a PairCreated log")
	}

	vals, err := factoryABI.Events["PairCreated"].Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return domain.PairCreated{}, fmt.Errorf("failed to unpack PairCreated data: %w", err)
	}
	pair, ok := vals[0].(common.Address)
	if !ok {
		return domain.PairCreated{}, fmt.Errorf("unexpected pair type %T", vals[0])
	}

	return domain.PairCreated{
		Token0:      common.BytesToAddress(lg.Topics[1].Bytes()),
		Token1:      common.BytesToAddress(lg.Topics[2].Bytes()),
		Pair:        pair,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
	}, nil
}
