package model

import "time"

// Member roles accepted in the JWT "role" claim.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// Member represents a row in the `members` table.  The booking core
// treats members as read-mostly: the single field it mutates is
// HasUsedFreeSession, flipped to true when a free booking is confirmed
// and back to false when that booking is cancelled outside the grace
// window.  That mutation always goes through the member repository's
// compare-and-set helpers.
type Member struct {
	ID                 uint64    // members.id
	Email              string    // members.email
	PasswordHash       string    // members.password_hash
	Role               string    // members.role (MEMBER or ADMIN)
	HasUsedFreeSession bool      // members.has_used_free_session
	EmailVerified      bool      // members.email_verified
	IsActive           bool      // members.is_active
	CreatedAt          time.Time // members.created_at
	UpdatedAt          time.Time // members.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only
// the SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	MemberID  uint64     // refresh_tokens.member_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
