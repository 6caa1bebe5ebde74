package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// UnknownOwner is the owner recorded for tokens whose owner() accessor could
// not be read. It equals the renounced-ownership address, so OwnerUnknown tells
// the two apart.
var UnknownOwner = common.Address{}

// CandidateToken is a token discovered in a base-asset pair and waiting for
// its evaluation pass.
type CandidateToken struct {
	Address      common.Address `json:"address"`
	PairAddress  common.Address `json:"pairAddress"`
	IsBaseToken0 bool           `json:"isBaseToken0"`
	DiscoveredAt time.Time      `json:"discoveredAt"`
	Owner        common.Address `json:"owner"`
	OwnerUnknown bool           `json:"ownerUnknown,omitempty"`
}

// HasOwner reports whether owner() was read at discovery time. A renounced
// token has an owner, the zero address.
func (c *CandidateToken) HasOwner() bool {
	return !c.OwnerUnknown
}

// Age returns how long the candidate has been pending at now.
func (c *CandidateToken) Age(now time.Time) time.Duration {
	return now.Sub(c.DiscoveredAt)
}

// Clone returns a copy safe to hand out of a store.
func (c *CandidateToken) Clone() *CandidateToken {
	cp := *c
	return &cp
}
