// Package planner selects single-sided liquidity ranges around the current
// pool price.
package planner

import (
	"fmt"

	"launchkit/internal/model"
	"launchkit/internal/tickmath"
)

// PlanSingleSided returns a tick range seeded entirely with the issued asset.
//
// When the issued asset is slot 0, the range sits fully above the current
// tick; when it is slot 1, fully below. Either way the launch never needs any
// amount of the settlement asset.
func PlanSingleSided(currentTick, spacing int32, issuedIsToken0 bool, minTick, maxTick int32) (model.TickRange, error) {
	if spacing <= 0 {
		return model.TickRange{}, fmt.Errorf("tick spacing %d must be positive", spacing)
	}
	if minTick >= maxTick {
		return model.TickRange{}, fmt.Errorf("tick bounds [%d, %d] are inverted", minTick, maxTick)
	}

	var lower, upper int32
	var err error
	if issuedIsToken0 {
		lower, err = tickmath.RoundUp(currentTick+spacing, spacing)
		if err != nil {
			return model.TickRange{}, err
		}
		upper, err = tickmath.RoundDown(maxTick, spacing)
		if err != nil {
			return model.TickRange{}, err
		}
	} else {
		lower, err = tickmath.RoundUp(minTick, spacing)
		if err != nil {
			return model.TickRange{}, err
		}
		upper, err = tickmath.RoundDown(currentTick-spacing, spacing)
		if err != nil {
			return model.TickRange{}, err
		}
	}

	// Near a bound the range can collapse or invert. Submitting that to the
	// pool would revert, so reject it here.
	if lower >= upper {
		return model.TickRange{}, fmt.Errorf("tick %d spacing %d: %w", currentTick, spacing, model.ErrDegenerateRange)
	}

	r := model.TickRange{Lower: lower, Upper: upper}
	if err := r.Validate(spacing); err != nil {
		return model.TickRange{}, err
	}
	return r, nil
}
