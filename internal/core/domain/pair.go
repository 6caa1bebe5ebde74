package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PairCreated is a factory notification for a newly created pair.
type PairCreated struct {
	Token0      common.Address
	Token1      common.Address
	Pair        common.Address
	BlockNumber uint64
	TxHash      common.Hash
	// ReceivedAt is when the notification reached this process.
	ReceivedAt time.Time
}

// SplitBase returns the non-base token of the pair and whether the base asset
// sits in slot 0. ok is false unless exactly one side is the base asset.
func (p PairCreated) SplitBase(base common.Address) (token common.Address, baseIsToken0 bool, ok bool) {
	switch {
	case p.Token0 == base && p.Token1 == base:
		return common.Address{}, false, false
	case p.Token0 == base:
		return p.Token1, true, true
	case p.Token1 == base:
		return p.Token0, false, true
	default:
		return common.Address{}, false, false
	}
}
