package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/daily-diet/internal/repository"
)

var _ repository.RevocationStore = (*DB)(nil)

// Revoke records tokenID as logged out until the given time. Revoking the
// same token twice keeps the later expiry.
func (db *DB) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO revoked_sessions (token_id, expires_at) VALUES (?, ?)
		 ON CONFLICT(token_id) DO UPDATE SET expires_at = MAX(expires_at, excluded.expires_at)`,
		tokenID, until.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking session %s: %w", tokenID, err)
	}

	// Expired entries can no longer match a valid token; drop them here so
	// the table stays small without a background job.
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM revoked_sessions WHERE expires_at < ?`, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("sqlite: pruning revoked sessions: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked and the revocation has not
// yet expired. Expired rows awaiting pruning are ignored.
func (db *DB) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_sessions WHERE token_id = ? AND expires_at >= ?`,
		tokenID, time.Now().UTC(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking session %s: %w", tokenID, err)
	}
	return count > 0, nil
}
