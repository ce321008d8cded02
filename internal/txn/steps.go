/*

Typed instruction steps. A bundle accumulates these in order; the executor
serializes them for the chain. Coin handles are references to the step that
produced the coin, so later steps can consume earlier outputs without the
builder ever holding real coin objects.

*/

package txn

import (
	sdkmath "cosmossdk.io/math"
)

// StepKind identifies a bundle step.
type StepKind string

const (
	StepRefreshPrice     StepKind = "REFRESH_PRICE"
	StepSplitInput       StepKind = "SPLIT_INPUT" // pull owned coins of a type into the bundle
	StepWithdraw         StepKind = "WITHDRAW"
	StepBorrow           StepKind = "BORROW"
	StepRepay            StepKind = "REPAY"
	StepDeposit          StepKind = "DEPOSIT"
	StepSwap             StepKind = "SWAP"
	StepTransferToSender StepKind = "TRANSFER_TO_SENDER"
	StepOpenPosition     StepKind = "OPEN_POSITION"
	StepClosePosition    StepKind = "CLOSE_POSITION"
)

// CoinRef is a handle to the coin output of an earlier step.
type CoinRef struct {
	Step int `json:"step"`
}

// Step is one instruction in a bundle. Only the fields relevant to its Kind
// are populated.
type Step struct {
	Kind StepKind `json:"kind"`

	// Common coin fields
	CoinType string      `json:"coin_type,omitempty"`
	Amount   sdkmath.Int `json:"amount,omitempty"` // base units
	Input    *CoinRef    `json:"input,omitempty"`  // coin consumed by this step

	// REFRESH_PRICE
	ReserveArrayIndex uint64 `json:"reserve_array_index,omitempty"`
	PriceIdentifier   string `json:"price_identifier,omitempty"`
	PriceUpdateData   string `json:"price_update_data,omitempty"` // oracle attestation blob, base64

	// Lending-market operations. MarketID/MarketType address the market
	// object the node-side expander targets.
	MarketID        string `json:"market_id,omitempty"`
	MarketType      string `json:"market_type,omitempty"`
	ObligationID    string `json:"obligation_id,omitempty"`
	ObligationCapID string `json:"obligation_cap_id,omitempty"`

	// SWAP
	Route       []byte `json:"route,omitempty"` // opaque route payload from the router
	ByAmountIn  bool   `json:"by_amount_in,omitempty"`
	MaxSlippage string `json:"max_slippage,omitempty"`

	// Position operations
	PoolID     string      `json:"pool_id,omitempty"`
	PositionID string      `json:"position_id,omitempty"`
	TickLower  int         `json:"tick_lower,omitempty"`
	TickUpper  int         `json:"tick_upper,omitempty"`
	AmountA    sdkmath.Int `json:"amount_a,omitempty"`
	AmountB    sdkmath.Int `json:"amount_b,omitempty"`
	InputB     *CoinRef    `json:"input_b,omitempty"` // second coin for OPEN_POSITION
}
