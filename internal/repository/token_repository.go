package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo tracks member refresh tokens. Only the SHA-256 hash of the
// raw token ever reaches the table, so a leaked refresh_tokens dump
// cannot be replayed against the refresh endpoint. Revocation is a
// tombstone (revoked_at) rather than a delete, which keeps the row
// around for auditing a suspicious logout-all.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh records a freshly issued refresh token hash for the
// member, valid until exp.
func (r *TokenRepo) StoreRefresh(ctx context.Context, memberID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (member_id, token_hash, expires_at) VALUES (?,?,?)",
		memberID, tokenHash, exp)
	return err
}

// ValidateRefresh resolves a presented token hash to its member.
// Revoked and expired tokens report sql.ErrNoRows, indistinguishable
// from a hash that never existed.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		memberID  uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT member_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&memberID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid {
		return 0, sql.ErrNoRows
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return memberID, nil
}

// RevokeByHash tombstones a single token; the member's logout path.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForMember tombstones every live token the member holds,
// ending all of their sessions at once (password change, admin
// lockout).
func (r *TokenRepo) RevokeAllForMember(ctx context.Context, memberID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE member_id=? AND revoked_at IS NULL",
		memberID)
	return err
}
