package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SigningRecord is one row of the audit trail: a request, its operator
// decision, and its outcome. Never the artifact itself and never key
// material; the tx hash is enough to correlate with the chain.
type SigningRecord struct {
	ID        uuid.UUID
	RequestID string
	Method    string // wallet_getAddress, wallet_signTransaction
	KeyID     int64
	Origin    *string
	Address   *string
	ChainID   *int64
	Nonce     *int64
	Decision  *string // approved, rejected (signing requests only)
	Outcome   string  // ok, or the error code
	TxHash    *string
	CreatedAt time.Time
}

// SigningRecordRepository handles audit trail storage
type SigningRecordRepository struct {
	store *Store
}

// NewSigningRecordRepository creates a new signing record repository
func NewSigningRecordRepository(store *Store) *SigningRecordRepository {
	return &SigningRecordRepository{store: store}
}

// Create inserts a new signing record
func (r *SigningRecordRepository) Create(ctx context.Context, rec *SigningRecord) error {
	query := `
		INSERT INTO signing_records (
			id, request_id, method, key_id, origin, address,
			chain_id, nonce, decision, outcome, tx_hash
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.store.pool.Exec(ctx, query,
		rec.ID,
		rec.RequestID,
		rec.Method,
		rec.KeyID,
		rec.Origin,
		rec.Address,
		rec.ChainID,
		rec.Nonce,
		rec.Decision,
		rec.Outcome,
		rec.TxHash,
	)

	if err != nil {
		return fmt.Errorf("failed to create signing record: %w", err)
	}

	return nil
}

// ListByKeyID returns the most recent records for a key, newest first
func (r *SigningRecordRepository) ListByKeyID(ctx context.Context, keyID int64, limit int) ([]*SigningRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, request_id, method, key_id, origin, address,
			chain_id, nonce, decision, outcome, tx_hash, created_at
		FROM signing_records
		WHERE key_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.store.pool.Query(ctx, query, keyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list signing records: %w", err)
	}
	defer rows.Close()

	var records []*SigningRecord
	for rows.Next() {
		rec := &SigningRecord{}
		if err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.Method,
			&rec.KeyID,
			&rec.Origin,
			&rec.Address,
			&rec.ChainID,
			&rec.Nonce,
			&rec.Decision,
			&rec.Outcome,
			&rec.TxHash,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signing record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
