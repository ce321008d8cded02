/*

Cycle snapshot types persisted after every rebalance cycle so drift decisions
can be audited across restarts.

*/

package types

import (
	"time"
)

// CycleAction identifies the corrective branch a cycle took.
type CycleAction string

const (
	CycleActionNone   CycleAction = "NONE"    // drift within tolerance
	CycleActionRepay  CycleAction = "REPAY"   // over-hedged: withdraw, swap, repay
	CycleActionBorrow CycleAction = "BORROW"  // under-hedged: borrow, swap, deposit
	CycleActionAbort  CycleAction = "ABORT"   // cycle failed before submission
)

// StepReceipt records one bundle step for the audit trail.
type StepReceipt struct {
	Kind     string `json:"kind"`
	CoinType string `json:"coin_type,omitempty"`
	Amount   string `json:"amount,omitempty"`
}

// CycleSnapshot is the persisted record of a single rebalance cycle.
type CycleSnapshot struct {
	CycleNumber       int           `json:"cycle_number"`
	CycleID           string        `json:"cycle_id"`
	Timestamp         time.Time     `json:"timestamp"`
	ObligationID      string        `json:"obligation_id"`
	PositionID        string        `json:"position_id"`
	HedgedSymbol      string        `json:"hedged_symbol"`
	StableSymbol      string        `json:"stable_symbol"`
	LoanAmount        string        `json:"loan_amount"`        // token units, decimal string
	PositionAmount    string        `json:"position_amount"`    // token units, decimal string
	Drift             string        `json:"drift"`              // signed token units
	Action            CycleAction   `json:"action"`
	Steps             []StepReceipt `json:"steps,omitempty"`
	TxDigest          string        `json:"tx_digest,omitempty"`
	Submitted         bool          `json:"submitted"`
	Error             string        `json:"error,omitempty"`
	DurationMs        int64         `json:"duration_ms"`
	NetValueUsd       string        `json:"net_value_usd,omitempty"`
	WeightedBorrowUsd string        `json:"weighted_borrow_usd,omitempty"`
	BorrowLimitUsd    string        `json:"borrow_limit_usd,omitempty"`
}
