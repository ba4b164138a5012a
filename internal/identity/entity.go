// AngelaMos | 2026
// entity.go

package identity

import (
	"time"
)

type Identity struct {
	ID             string     `db:"id"`
	Email          string     `db:"email"`
	PasswordHash   string     `db:"password_hash"`
	Name           string     `db:"name"`
	Phone          string     `db:"phone"`
	ClassLevel     string     `db:"class_level"`
	ExamPreference string     `db:"exam_preference"`
	Role           string     `db:"role"`
	IsActive       bool       `db:"is_active"`
	TokenVersion   int        `db:"token_version"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	DeletedAt      *time.Time `db:"deleted_at"`
}

func (i *Identity) IsDeleted() bool {
	return i.DeletedAt != nil
}

func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i *Identity) IsStudent() bool {
	return i.Role == RoleStudent
}

// Role is fixed at creation; there is no path that converts one role into
// another.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
	RoleNone    = "none"
)

func IsKnownRole(role string) bool {
	return role == RoleAdmin || role == RoleStudent
}

func DisplayRole(role string) string {
	switch role {
	case RoleAdmin:
		return "Administrator"
	case RoleStudent:
		return "Student"
	default:
		return ""
	}
}
