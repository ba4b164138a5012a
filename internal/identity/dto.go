// AngelaMos | 2026
// dto.go

package identity

import (
	"time"
)

// NewStudent carries an already verified registration. PasswordHash is an
// argon2id hash, never plaintext.
type NewStudent struct {
	Email          string
	PasswordHash   string
	Name           string
	Phone          string
	ClassLevel     string
	ExamPreference string
}

type RoleResolution struct {
	Role        string `json:"role"`
	DisplayRole string `json:"display_role"`
}

type RoleCheckRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type UpdateProfileRequest struct {
	Name           *string `json:"name,omitempty"            validate:"omitempty,min=1,max=100"`
	Phone          *string `json:"phone,omitempty"           validate:"omitempty,min=7,max=20"`
	ClassLevel     *string `json:"class_type,omitempty"      validate:"omitempty,max=32"`
	ExamPreference *string `json:"exam_preference,omitempty" validate:"omitempty,oneof=JEE NEET"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type IdentityResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	ClassLevel     string    `json:"class_type"`
	ExamPreference string    `json:"exam_preference"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ListStudentsParams struct {
	Page           int    `json:"page"`
	PageSize       int    `json:"page_size"`
	Search         string `json:"search"`
	ClassLevel     string `json:"class_type"`
	ExamPreference string `json:"exam_preference"`
}

func (p *ListStudentsParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListStudentsParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToIdentityResponse(i *Identity) IdentityResponse {
	return IdentityResponse{
		ID:             i.ID,
		Email:          i.Email,
		Name:           i.Name,
		Phone:          i.Phone,
		ClassLevel:     i.ClassLevel,
		ExamPreference: i.ExamPreference,
		Role:           i.Role,
		IsActive:       i.IsActive,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

func ToIdentityResponseList(identities []Identity) []IdentityResponse {
	responses := make([]IdentityResponse, 0, len(identities))
	for i := range identities {
		responses = append(responses, ToIdentityResponse(&identities[i]))
	}
	return responses
}
