// Package auth provides the capability predicate gating mutating operations.
package auth

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"launchkit/internal/model"
)

// Capabilities checked before mutating operations.
const (
	CapLaunch   = "launch"
	CapWithdraw = "fees.withdraw"
)

// Func reports whether caller holds the named capability. A nil error grants
// the operation.
type Func func(ctx context.Context, caller common.Address, capability string) error

// AllowAll grants every capability. Test wiring only.
func AllowAll(context.Context, common.Address, string) error {
	return nil
}

// AllowList grants all capabilities to the listed admin addresses and denies
// everyone else.
func AllowList(admins []common.Address) Func {
	set := make(map[common.Address]struct{}, len(admins))
	for _, a := range admins {
		set[a] = struct{}{}
	}
	return func(_ context.Context, caller common.Address, capability string) error {
		if _, ok := set[caller]; !ok {
			return fmt.Errorf("caller %s capability %s: %w", caller.Hex(), capability, model.ErrNotAuthorized)
		}
		return nil
	}
}
