// AngelaMos | 2026
// dto.go

package otp

type RegistrationRequest struct {
	Email          string `json:"email"          validate:"required,email,max=255"`
	Password       string `json:"password"       validate:"required,min=6,max=128"`
	Name           string `json:"name"           validate:"omitempty,max=100"`
	Phone          string `json:"phone"          validate:"omitempty,min=7,max=20"`
	ClassLevel     string `json:"classType"      validate:"required,max=32"`
	ExamPreference string `json:"examPreference" validate:"required,oneof=JEE NEET"`
}

type ResendRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Code  string `json:"otp"   validate:"required,len=6,numeric"`
}

type IssueResult struct {
	OTPID     string `json:"otp_id"`
	Email     string `json:"email"`
	ExpiresIn int    `json:"expires_in"`
}

type Status struct {
	Pending          bool `json:"pending"`
	RemainingSeconds int  `json:"remaining_seconds"`
	Attempts         int  `json:"attempts"`
	MaxAttempts      int  `json:"max_attempts"`
}
