// AngelaMos | 2026
// entity.go

package otp

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const PurposeRegistration = "registration"

// Record is one verification challenge. At most one unverified record exists
// per (email, purpose).
type Record struct {
	ID         string     `db:"id"`
	Email      string     `db:"email"`
	CodeHash   string     `db:"code_hash"`
	Purpose    string     `db:"purpose"`
	Payload    Payload    `db:"payload"`
	IssuedAt   time.Time  `db:"issued_at"`
	ExpiresAt  time.Time  `db:"expires_at"`
	VerifiedAt *time.Time `db:"verified_at"`
	Attempts   int        `db:"attempts"`
}

func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

func (r *Record) RemainingSeconds(now time.Time) int {
	if r.IsExpired(now) {
		return 0
	}
	return int(r.ExpiresAt.Sub(now).Seconds())
}

// Payload is the pending registration. The password is already hashed.
type Payload struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	ClassLevel     string `json:"class_type"`
	ExamPreference string `json:"exam_preference"`
	PasswordHash   string `json:"password_hash"`
}

func (p Payload) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode otp payload: %w", err)
	}
	return b, nil
}

func (p *Payload) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*p = Payload{}
		return nil
	default:
		return fmt.Errorf("scan otp payload: unsupported type %T", src)
	}

	if err := json.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("decode otp payload: %w", err)
	}
	return nil
}
