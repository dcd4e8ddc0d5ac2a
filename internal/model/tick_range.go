package model

import "fmt"

// TickRange is a half-open [Lower, Upper) range on the pool's tick grid.
// Both bounds are exact multiples of the pool's tick spacing.
type TickRange struct {
	Lower int32 `json:"lower"`
	Upper int32 `json:"upper"`
}

// Validate checks ordering and grid alignment for the given spacing.
func (r TickRange) Validate(spacing int32) error {
	if spacing <= 0 {
		return fmt.Errorf("tick spacing %d must be positive", spacing)
	}
	if r.Lower >= r.Upper {
		return fmt.Errorf("range [%d, %d): %w", r.Lower, r.Upper, ErrDegenerateRange)
	}
	if r.Lower%spacing != 0 || r.Upper%spacing != 0 {
		return fmt.Errorf("range [%d, %d) spacing %d: %w", r.Lower, r.Upper, spacing, ErrMisalignedTick)
	}
	return nil
}
