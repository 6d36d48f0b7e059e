package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo is the optional session revocation list. Rows are keyed by the
// token's jti and only need to live until the token would have expired.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Revoke records jti as revoked. Revoking twice is a no-op.
func (r *TokenRepo) Revoke(ctx context.Context, jti string, userID uint64, role string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO revoked_tokens (jti, user_id, role, expires_at) VALUES (?,?,?,?)",
		jti, userID, role, exp.UTC())
	return err
}

// IsRevoked reports whether jti is on the list.
func (r *TokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE jti=? LIMIT 1", jti).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired drops entries for tokens that have expired on their own.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
