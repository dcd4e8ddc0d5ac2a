package model

import "errors"

// Input validation failures, detected before any external call.
var (
	ErrInvalidSupply    = errors.New("circulating supply must be positive")
	ErrInvalidMarketCap = errors.New("target market cap must be positive")
	ErrInvalidRate      = errors.New("reference rate must be positive")
	ErrInvalidDeployer  = errors.New("deployer address is zero")
)

// Oracle failures, surfaced verbatim to the caller with no internal retry.
var (
	ErrStaleData       = errors.New("oracle observation is stale")
	ErrIncompleteRound = errors.New("oracle round is incomplete")
	ErrInvalidPrice    = errors.New("oracle price is non-positive")
)

// Arithmetic failures. Never clamped or rounded into validity.
var (
	ErrPriceOverflow   = errors.New("sqrt price ratio outside uint160 bounds")
	ErrDegenerateRange = errors.New("computed tick range is empty or inverted")
	ErrMisalignedTick  = errors.New("tick is not a multiple of spacing")
)

// Authorization and registration failures, rejected before any state mutation.
var (
	ErrNotAuthorized     = errors.New("caller lacks required capability")
	ErrAlreadyRegistered = errors.New("creator already registered for position")
	ErrInvalidOwner      = errors.New("no creator registered for position")
	ErrReentrantCall     = errors.New("operation already in flight for position")
)

// ErrUnknownPair indicates neither side of a position matches the configured
// settlement asset.
var ErrUnknownPair = errors.New("position pair does not include settlement asset")
