// Package receipts journals confirmed batch submissions to Postgres.
//
// The journal is a local convenience record for operators: which file was
// anchored when, by whom, and at what cost. It is never consulted during
// verification: the ledger stays the single source of truth.
package receipts

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// BatchReceipt records one confirmed ledger submission.
type BatchReceipt struct {
	ID           int64     `json:"id"`
	TxID         string    `json:"tx_id"`
	HashCount    int       `json:"hash_count"`
	Signer       string    `json:"signer"`
	CostConsumed uint64    `json:"cost_consumed"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists batch receipts to a PostgreSQL database.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Record inserts a receipt and fills in its ID and CreatedAt.
func (s *Store) Record(ctx context.Context, r *BatchReceipt) error {
	if err := s.pool.QueryRow(ctx,
		`INSERT INTO batch_receipts (tx_id, hash_count, signer, cost_consumed)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		r.TxID, r.HashCount, r.Signer, r.CostConsumed,
	).Scan(&r.ID, &r.CreatedAt); err != nil {
		return fmt.Errorf("insert batch receipt: %w", err)
	}

	s.logger.Debug("batch receipt recorded",
		zap.Int64("id", r.ID),
		zap.String("tx_id", r.TxID),
		zap.Int("hash_count", r.HashCount),
	)
	return nil
}

// List returns the most recent receipts, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*BatchReceipt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, tx_id, hash_count, signer, cost_consumed, created_at
		 FROM batch_receipts ORDER BY id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query batch receipts: %w", err)
	}
	defer rows.Close()

	var out []*BatchReceipt
	for rows.Next() {
		r := &BatchReceipt{}
		if err := rows.Scan(&r.ID, &r.TxID, &r.HashCount, &r.Signer, &r.CostConsumed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch receipt: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
