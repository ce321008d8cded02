// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/Jarekkkkk/sui-bot/internal/types"
	"github.com/rs/zerolog/log"
)

// SaveCycleSnapshot saves a complete cycle snapshot to the database.
func SaveCycleSnapshot(snapshot types.CycleSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	stepsJSON, err := json.Marshal(snapshot.Steps)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO cycle_snapshots (
			cycle_number, cycle_id, snapshot_timestamp,
			obligation_id, position_id, hedged_symbol, stable_symbol,
			loan_amount, position_amount, drift, action,
			steps, tx_digest, submitted, error, duration_ms,
			net_value_usd, weighted_borrow_usd, borrow_limit_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.CycleNumber, snapshot.CycleID, snapshot.Timestamp,
		snapshot.ObligationID, snapshot.PositionID, snapshot.HedgedSymbol, snapshot.StableSymbol,
		snapshot.LoanAmount, snapshot.PositionAmount, snapshot.Drift, string(snapshot.Action),
		stepsJSON, snapshot.TxDigest, snapshot.Submitted, snapshot.Error, snapshot.DurationMs,
		snapshot.NetValueUsd, snapshot.WeightedBorrowUsd, snapshot.BorrowLimitUsd,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save cycle snapshot: %w", err)
	}

	log.Debug().
		Int64("snapshot_id", snapshotID).
		Int("cycle_number", snapshot.CycleNumber).
		Str("action", string(snapshot.Action)).
		Msg("Cycle snapshot saved to database")

	return snapshotID, nil
}

// RecentCycleSnapshots returns the newest count snapshot rows, newest first.
func RecentCycleSnapshots(count int) ([]types.CycleSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT cycle_number, cycle_id, snapshot_timestamp,
		       obligation_id, position_id, hedged_symbol, stable_symbol,
		       loan_amount, position_amount, drift, action,
		       steps, tx_digest, submitted, error, duration_ms,
		       net_value_usd, weighted_borrow_usd, borrow_limit_usd
		FROM cycle_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1;
	`
	rows, err := DB.Query(query, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle snapshots: %w", err)
	}
	defer rows.Close()

	var out []types.CycleSnapshot
	for rows.Next() {
		var s types.CycleSnapshot
		var stepsJSON []byte
		err := rows.Scan(
			&s.CycleNumber, &s.CycleID, &s.Timestamp,
			&s.ObligationID, &s.PositionID, &s.HedgedSymbol, &s.StableSymbol,
			&s.LoanAmount, &s.PositionAmount, &s.Drift, &s.Action,
			&stepsJSON, &s.TxDigest, &s.Submitted, &s.Error, &s.DurationMs,
			&s.NetValueUsd, &s.WeightedBorrowUsd, &s.BorrowLimitUsd,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle snapshot row: %w", err)
		}
		if len(stepsJSON) > 0 {
			if err := json.Unmarshal(stepsJSON, &s.Steps); err != nil {
				return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PgStore adapts the package-level persistence functions to the store
// interface the rebalancer consumes.
type PgStore struct{}

// Ping reports whether the database connection is healthy.
func (PgStore) Ping() error {
	return TestDBConnection()
}

// NextCycleNumber advances and returns the persistent cycle counter.
func (PgStore) NextCycleNumber() (int, error) {
	return IncrementCycleNumber()
}

// CurrentCycleNumber returns the counter without advancing it.
func (PgStore) CurrentCycleNumber() (int, error) {
	return GetCurrentCycleNumber()
}

// SaveCycleSnapshot persists one cycle snapshot row.
func (PgStore) SaveCycleSnapshot(snapshot types.CycleSnapshot) (int64, error) {
	return SaveCycleSnapshot(snapshot)
}

// RecentCycleSnapshots returns the newest count snapshot rows.
func (PgStore) RecentCycleSnapshots(count int) ([]types.CycleSnapshot, error) {
	return RecentCycleSnapshots(count)
}
