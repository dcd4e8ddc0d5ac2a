package model

// LaunchRecord captures a completed pool launch for storage.
type LaunchRecord struct {
	ChainID         uint64 `json:"chain_id"`
	Pool            string `json:"pool"`
	IssuedAsset     string `json:"issued_asset"`
	SettlementAsset string `json:"settlement_asset"`
	Fee             uint32 `json:"fee"`
	SqrtPriceX96    string `json:"sqrt_price_x96"`
	TickLower       int32  `json:"tick_lower"`
	TickUpper       int32  `json:"tick_upper"`
	PositionID      string `json:"position_id"`
	Liquidity       string `json:"liquidity"`
	Amount0         string `json:"amount0"`
	Amount1         string `json:"amount1"`
	Recipient       string `json:"recipient"`
	LaunchedAt      string `json:"launched_at"`
}

// CreatorRegistration is the one-time, immutable attribution of a liquidity
// position to its asset creator.
type CreatorRegistration struct {
	ChainID      uint64 `json:"chain_id"`
	PositionID   string `json:"position_id"`
	Creator      string `json:"creator"`
	RegisteredAt string `json:"registered_at"`
}

// PendingSettlement records amounts collected on chain before the convert and
// payout legs run. A completed FeeCollectionRecord for the same collection
// supersedes it; a pending record with no completion marks funds sitting in
// custody that still need settling.
type PendingSettlement struct {
	ChainID     uint64 `json:"chain_id"`
	PositionID  string `json:"position_id"`
	Creator     string `json:"creator"`
	Collected0  string `json:"collected0"`
	Collected1  string `json:"collected1"`
	CollectedAt string `json:"collected_at"`
}

// FeeCollectionRecord captures one collect-swap-split-pay cycle.
type FeeCollectionRecord struct {
	ChainID       uint64 `json:"chain_id"`
	PositionID    string `json:"position_id"`
	Creator       string `json:"creator"`
	Collected0    string `json:"collected0"`
	Collected1    string `json:"collected1"`
	SwapProceeds  string `json:"swap_proceeds"`
	CreatorShare  string `json:"creator_share"`
	ProtocolShare string `json:"protocol_share"`
	CollectedAt   string `json:"collected_at"`
}
