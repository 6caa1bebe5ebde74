package domain

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// BlacklistEntry lists the tokens attributed to a single owner.
type BlacklistEntry struct {
	Owner  common.Address   `json:"owner"`
	Tokens []common.Address `json:"tokens"`
}

// TokenSet is a set of token addresses.
type TokenSet map[common.Address]struct{}

// Add inserts token and reports whether it was new.
func (s TokenSet) Add(token common.Address) bool {
	if _, ok := s[token]; ok {
		return false
	}
	s[token] = struct{}{}
	return true
}

// Contains reports whether token is in the set.
func (s TokenSet) Contains(token common.Address) bool {
	_, ok := s[token]
	return ok
}

// Sorted returns the members in byte order, for stable output.
func (s TokenSet) Sorted() []common.Address {
	out := make([]common.Address, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	SortAddresses(out)
	return out
}

// SortAddresses sorts addrs in place by their byte value.
func SortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})
}
