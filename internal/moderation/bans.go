// Package moderation implements the staff-only ban/unban flow. A ban-status
// flip is a multi-step, idempotent sequence: record or remove ban records,
// flip the account flag, invalidate live sessions, and cascade-delete the
// conversation kind the account can no longer write into. Re-running any
// step after a partial failure converges on the single-run end state.
package moderation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BanRecord links a ban to the staff member who issued it and to an opaque
// correlation tag (the network identifier last seen for the account, used to
// detect ban evasion — not a security credential).
type BanRecord struct {
	ID        string
	AccountID string
	IssuedBy  string
	Reason    string
	BanTag    string
	CreatedAt time.Time
}

// BanStore manages ban records in PostgreSQL.
type BanStore struct {
	db *sql.DB
}

// NewBanStore creates a ban record store backed by the given database handle.
func NewBanStore(db *sql.DB) *BanStore {
	return &BanStore{db: db}
}

// Record inserts a ban record for the account.
func (s *BanStore) Record(ctx context.Context, accountID, issuedBy, reason, banTag string) error {
	const query = `
		INSERT INTO ban_records (id, account_id, issued_by, reason, ban_tag)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), accountID, issuedBy, reason, banTag)
	if err != nil {
		return fmt.Errorf("moderation: record ban: %w", err)
	}
	return nil
}

// RemoveAll deletes every ban record for the account. Removing records that
// are already gone is a no-op (set semantics), which keeps concurrent unbans
// convergent.
func (s *BanStore) RemoveAll(ctx context.Context, accountID string) error {
	const query = `DELETE FROM ban_records WHERE account_id = $1`

	if _, err := s.db.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("moderation: remove bans: %w", err)
	}
	return nil
}

// ExistsFor reports whether any ban record exists for the account. Only
// current existence matters for gating; history is kept for staff review.
func (s *BanStore) ExistsFor(ctx context.Context, accountID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM ban_records WHERE account_id = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, accountID).Scan(&exists); err != nil {
		return false, fmt.Errorf("moderation: ban exists: %w", err)
	}
	return exists, nil
}

// ListFor returns the ban records for an account, newest first.
func (s *BanStore) ListFor(ctx context.Context, accountID string) ([]BanRecord, error) {
	const query = `
		SELECT id, account_id, issued_by, COALESCE(reason, ''), COALESCE(ban_tag, ''), created_at
		FROM ban_records
		WHERE account_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("moderation: list bans: %w", err)
	}
	defer rows.Close()

	var records []BanRecord
	for rows.Next() {
		var r BanRecord
		if err := rows.Scan(&r.ID, &r.AccountID, &r.IssuedBy, &r.Reason, &r.BanTag, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("moderation: list bans scan: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("moderation: list bans rows: %w", err)
	}
	return records, nil
}
