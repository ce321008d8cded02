/*

Lending-market types. Reserves and obligations are point-in-time snapshots
fetched at the start of a cycle; nothing here is cached across cycles.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// ReserveConfig carries the per-asset lending parameters the bot needs to
// size borrows and fees. Values are basis points unless stated otherwise.
type ReserveConfig struct {
	OpenLtvPct      int         `json:"open_ltv_pct"`
	CloseLtvPct     int         `json:"close_ltv_pct"`
	BorrowFeeBps    int         `json:"borrow_fee_bps"`
	BorrowWeightBps int         `json:"borrow_weight_bps"`
	BorrowLimit     sdkmath.Int `json:"borrow_limit"`
	Isolated        bool        `json:"isolated"`
}

// Reserve is a single asset inside the lending market, with interest
// compounded and oracle prices refreshed as of fetch time.
type Reserve struct {
	ID              string             `json:"id"`
	ArrayIndex      uint64             `json:"array_index"` // slot in the on-chain reserve vector
	CoinType        string             `json:"coin_type"`
	Symbol          string             `json:"symbol"`
	MintDecimals    int                `json:"mint_decimals"`
	PriceIdentifier string             `json:"price_identifier"` // oracle feed key
	Price           sdkmath.LegacyDec  `json:"price"`
	MinPrice        sdkmath.LegacyDec  `json:"min_price"`
	MaxPrice        sdkmath.LegacyDec  `json:"max_price"`
	AvailableAmount sdkmath.Int        `json:"available_amount"`
	BorrowedAmount  sdkmath.LegacyDec  `json:"borrowed_amount"`
	Config          ReserveConfig      `json:"config"`
	RewardCoinTypes []string           `json:"reward_coin_types,omitempty"`
}

// ObligationDeposit is one collateral entry of an obligation.
// Amount is in token units (decimal), not base units.
type ObligationDeposit struct {
	CoinType          string            `json:"coin_type"`
	ReserveArrayIndex uint64            `json:"reserve_array_index"`
	DepositedAmount   sdkmath.LegacyDec `json:"deposited_amount"`
	DepositedValueUsd sdkmath.LegacyDec `json:"deposited_value_usd"`
}

// ObligationBorrow is one loan entry of an obligation.
type ObligationBorrow struct {
	CoinType          string            `json:"coin_type"`
	ReserveArrayIndex uint64            `json:"reserve_array_index"`
	BorrowedAmount    sdkmath.LegacyDec `json:"borrowed_amount"`
	BorrowedValueUsd  sdkmath.LegacyDec `json:"borrowed_value_usd"`
}

// Obligation is a user's aggregate lending position.
type Obligation struct {
	ID                         string              `json:"id"`
	Deposits                   []ObligationDeposit `json:"deposits"`
	Borrows                    []ObligationBorrow  `json:"borrows"`
	DepositedValueUsd          sdkmath.LegacyDec   `json:"deposited_value_usd"`
	BorrowedValueUsd           sdkmath.LegacyDec   `json:"borrowed_value_usd"`
	NetValueUsd                sdkmath.LegacyDec   `json:"net_value_usd"`
	WeightedBorrowsUsd         sdkmath.LegacyDec   `json:"weighted_borrows_usd"`
	MaxPriceWeightedBorrowsUsd sdkmath.LegacyDec   `json:"max_price_weighted_borrows_usd"`
	BorrowLimitUsd             sdkmath.LegacyDec   `json:"borrow_limit_usd"`
	MinPriceBorrowLimitUsd     sdkmath.LegacyDec   `json:"min_price_borrow_limit_usd"`
	UnhealthyBorrowValueUsd    sdkmath.LegacyDec   `json:"unhealthy_borrow_value_usd"`
}

// BorrowOf returns the borrow entry for the given coin type, if present.
func (o *Obligation) BorrowOf(coinType string) (ObligationBorrow, bool) {
	for _, b := range o.Borrows {
		if b.CoinType == coinType {
			return b, true
		}
	}
	return ObligationBorrow{}, false
}

// DepositOf returns the deposit entry for the given coin type, if present.
func (o *Obligation) DepositOf(coinType string) (ObligationDeposit, bool) {
	for _, d := range o.Deposits {
		if d.CoinType == coinType {
			return d, true
		}
	}
	return ObligationDeposit{}, false
}

// IsHealthy reports the conservative health invariant: weighted borrows
// valued at the oracle's max price must stay under the borrow limit valued
// at the min price.
func (o *Obligation) IsHealthy() bool {
	return o.MaxPriceWeightedBorrowsUsd.LTE(o.MinPriceBorrowLimitUsd)
}

// ObligationOwnerCap is the capability object granting control over one
// obligation.
type ObligationOwnerCap struct {
	CapID        string `json:"cap_id"`
	ObligationID string `json:"obligation_id"`
}
