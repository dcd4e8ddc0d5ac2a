package model

import (
	"fmt"
	"math/big"
)

const bpsDenominator = 10_000

// FeeSplit divides a settlement-asset total between the asset creator and the
// protocol treasury. CreatorShare + ProtocolShare <= total; truncation leaves
// the remainder unspent rather than overpaying either side.
type FeeSplit struct {
	CreatorShare  *big.Int
	ProtocolShare *big.Int
}

// SplitFee computes floor(total*creatorBps/10000) for the creator and
// floor(total*(10000-creatorBps)/10000) for the protocol.
func SplitFee(total *big.Int, creatorBps uint32) (FeeSplit, error) {
	if total == nil || total.Sign() < 0 {
		return FeeSplit{}, fmt.Errorf("fee total %v must be non-negative", total)
	}
	if creatorBps > bpsDenominator {
		return FeeSplit{}, fmt.Errorf("creator share %d bps exceeds %d", creatorBps, bpsDenominator)
	}

	denom := big.NewInt(bpsDenominator)
	creator := new(big.Int).Mul(total, big.NewInt(int64(creatorBps)))
	creator.Quo(creator, denom)
	protocol := new(big.Int).Mul(total, big.NewInt(int64(bpsDenominator-creatorBps)))
	protocol.Quo(protocol, denom)

	return FeeSplit{CreatorShare: creator, ProtocolShare: protocol}, nil
}
