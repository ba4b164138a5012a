// AngelaMos | 2026
// entity.go

package auth

import (
	"time"

	"github.com/carterperez-dev/examprep/internal/middleware"
)

// Portal identifies the login surface a session was opened through. Every
// refresh token rotated out of a login keeps the portal of that login.
type Portal string

const (
	PortalAny     Portal = "any"
	PortalStudent Portal = "student"
	PortalAdmin   Portal = "admin"
)

// Admits reports whether an identity holding role may use this portal.
func (p Portal) Admits(role string) bool {
	switch p {
	case PortalAny:
		return role == middleware.RoleStudent || role == middleware.RoleAdmin
	case PortalStudent:
		return role == middleware.RoleStudent
	case PortalAdmin:
		return role == middleware.RoleAdmin
	}
	return false
}

// Session is one refresh token in a rotation chain. Rotations share
// FamilyID and Portal with the login that started the chain.
type Session struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	Portal       Portal     `db:"portal"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UsedAt       *time.Time `db:"used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
}

// Rotated reports whether the token was already exchanged for a successor.
// Presenting a rotated token again means the chain leaked.
func (s *Session) Rotated() bool {
	return s.UsedAt != nil
}

func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
