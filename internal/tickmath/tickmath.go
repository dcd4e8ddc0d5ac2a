// Package tickmath provides pure tick-grid rounding helpers.
//
// All arithmetic uses Go's truncating (toward-zero) division and remainder,
// which matches the pool's own tick representation. Misaligned ticks are
// rejected by the pool, so both helpers must land exactly on the grid.
package tickmath

import "fmt"

// MinTick and MaxTick are the global tick bounds of the pool's price grid.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// RoundUp rounds tick to the nearest multiple of spacing toward positive
// infinity. For negative ticks the remainder is itself negative, so
// subtracting it moves the value up; that is the intended behavior.
func RoundUp(tick, spacing int32) (int32, error) {
	if spacing <= 0 {
		return 0, fmt.Errorf("tick spacing %d must be positive", spacing)
	}
	rem := tick % spacing
	if rem == 0 {
		return tick, nil
	}
	if tick > 0 {
		return tick + spacing - rem, nil
	}
	return tick - rem, nil
}

// RoundDown rounds tick to the nearest multiple of spacing toward negative
// infinity.
func RoundDown(tick, spacing int32) (int32, error) {
	if spacing <= 0 {
		return 0, fmt.Errorf("tick spacing %d must be positive", spacing)
	}
	rem := tick % spacing
	if rem == 0 {
		return tick, nil
	}
	if tick > 0 {
		return tick - rem, nil
	}
	return tick - spacing - rem, nil
}
