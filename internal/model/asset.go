package model

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// SortAssets orders two addresses the way the pool does: byte-wise comparison
// decides which occupies slot 0. Slot assignment for a live pool must still
// be read back from the pool itself, never assumed from deployment order.
func SortAssets(a, b common.Address) (token0, token1 common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}
