package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/soleilfit/class-booking/internal/model"
	"github.com/soleilfit/class-booking/internal/utils"
)

// MemberRepo persists member accounts. Besides the auth lookups it
// owns the two mutations of has_used_free_session: ClaimFreeSession is
// a compare-and-set so that a member firing concurrent booking
// requests consumes the free session exactly once.
type MemberRepo struct{ DB *sql.DB }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const memberCols = `id, email, password_hash, role, has_used_free_session, email_verified, is_active, created_at, updated_at`

// Create inserts a member and returns its ID.
func (r *MemberRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO members (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a member by normalized email.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (model.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var m model.Member
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE email=? LIMIT 1",
		email).Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Role, &m.HasUsedFreeSession,
		&m.EmailVerified, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// GetByID fetches a member by id.
func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (model.Member, error) {
	var m model.Member
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE id=? LIMIT 1",
		id).Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Role, &m.HasUsedFreeSession,
		&m.EmailVerified, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// ClaimFreeSession flips has_used_free_session from false to true and
// reports whether this caller performed the flip.  A false result means
// the flag was already set, so the member is not free-eligible.
func (r *MemberRepo) ClaimFreeSession(ctx context.Context, id uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE members SET has_used_free_session=1, updated_at=CURRENT_TIMESTAMP WHERE id=? AND has_used_free_session=0",
		id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RestoreFreeSession flips has_used_free_session back to false, making
// the member free-eligible again after an early enough cancellation.
func (r *MemberRepo) RestoreFreeSession(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE members SET has_used_free_session=0, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		id)
	return err
}
