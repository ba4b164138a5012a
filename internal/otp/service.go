// AngelaMos | 2026
// service.go

package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/examprep/internal/config"
	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/identity"
	"github.com/carterperez-dev/examprep/internal/mail"
)

// IdentityRegistry is the slice of the identity service the OTP flow needs.
type IdentityRegistry interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateStudent(ctx context.Context, req identity.NewStudent) (*identity.Identity, error)
	UpsertProfile(ctx context.Context, i *identity.Identity) error
}

type ServiceConfig struct {
	Repo       Repository
	Identities IdentityRegistry
	Mailer     mail.Mailer
	Limiter    IssueLimiter
	OTP        config.OTPConfig
	AppName    string
	Logger     *slog.Logger
}

type Service struct {
	repo       Repository
	identities IdentityRegistry
	mailer     mail.Mailer
	limiter    IssueLimiter
	cfg        config.OTPConfig
	appName    string
	logger     *slog.Logger
	validator  *validator.Validate

	now          func() time.Time
	generateCode func() (string, error)
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:         cfg.Repo,
		identities:   cfg.Identities,
		mailer:       cfg.Mailer,
		limiter:      cfg.Limiter,
		cfg:          cfg.OTP,
		appName:      cfg.AppName,
		logger:       logger,
		validator:    core.NewValidator(),
		now:          time.Now,
		generateCode: core.GenerateOTPCode,
	}
}

var errNoPendingVerification = core.NewAppError(
	core.ErrNotFound,
	"no pending verification found",
	http.StatusNotFound,
	"NOT_FOUND",
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue starts a registration. The account does not exist until Verify
// succeeds.
func (s *Service) Issue(
	ctx context.Context,
	req RegistrationRequest,
) (*IssueResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, core.BadRequestError(core.FormatValidationError(err))
	}

	email := normalizeEmail(req.Email)

	if err := s.ensureNewEmail(ctx, email); err != nil {
		return nil, err
	}

	if err := s.checkIssueLimit(ctx, email); err != nil {
		return nil, err
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.issue(ctx, email, Payload{
		Name:           strings.TrimSpace(req.Name),
		Phone:          strings.TrimSpace(req.Phone),
		ClassLevel:     req.ClassLevel,
		ExamPreference: req.ExamPreference,
		PasswordHash:   passwordHash,
	})
}

// Resend issues a fresh code for the most recent registration attempt,
// whether or not its code has expired.
func (s *Service) Resend(ctx context.Context, email string) (*IssueResult, error) {
	email = normalizeEmail(email)

	if err := s.ensureNewEmail(ctx, email); err != nil {
		return nil, err
	}

	last, err := s.repo.Latest(ctx, email, PurposeRegistration)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, errNoPendingVerification
		}
		return nil, err
	}

	if err := s.checkIssueLimit(ctx, email); err != nil {
		return nil, err
	}

	return s.issue(ctx, email, last.Payload)
}

func (s *Service) ensureNewEmail(ctx context.Context, email string) error {
	exists, err := s.identities.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}
	if exists {
		return fmt.Errorf("issue otp: %w", core.DuplicateError("email"))
	}
	return nil
}

func (s *Service) checkIssueLimit(ctx context.Context, email string) error {
	if s.limiter == nil {
		return nil
	}

	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "otp issue limiter error, failing open", "error", err)
		return nil
	}
	if !allowed {
		return fmt.Errorf("issue otp: %w", core.ErrRateLimited)
	}

	return nil
}

func (s *Service) issue(
	ctx context.Context,
	email string,
	payload Payload,
) (*IssueResult, error) {
	code, err := s.generateCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &Record{
		ID:        uuid.New().String(),
		Email:     email,
		CodeHash:  core.HashToken(code),
		Purpose:   PurposeRegistration,
		Payload:   payload,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}

	if err := s.repo.Replace(ctx, rec); err != nil {
		return nil, err
	}

	messageID, err := s.mailer.Send(ctx, s.codeMessage(email, payload.Name, code))
	if err != nil {
		if delErr := s.repo.Delete(ctx, rec.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "otp rollback failed",
				"otp_id", rec.ID,
				"error", delErr,
			)
		}
		return nil, fmt.Errorf("send otp: %w: %w", core.ErrDeliveryFailed, err)
	}

	s.logger.InfoContext(ctx, "otp issued",
		"otp_id", rec.ID,
		"message_id", messageID,
	)

	return &IssueResult{
		OTPID:     rec.ID,
		Email:     email,
		ExpiresIn: int(s.cfg.TTL.Seconds()),
	}, nil
}

func (s *Service) codeMessage(email, name, code string) mail.Message {
	minutes := int(s.cfg.TTL.Minutes())
	if minutes < 1 {
		minutes = 1
	}

	text := fmt.Sprintf(
		"Your %s verification code is %s. It expires in %d minute(s). "+
			"If you did not request this, ignore this email.",
		s.appName, code, minutes,
	)

	return mail.Message{
		To:      email,
		ToName:  name,
		Subject: s.appName + " verification code",
		Text:    text,
		HTML:    "<p>" + text + "</p>",
	}
}

// Verify checks code against the live challenge for email and, on success,
// creates the student identity from the stored registration.
func (s *Service) Verify(
	ctx context.Context,
	email, code string,
) (*identity.Identity, error) {
	ctx, span := core.StartSpan(ctx, "otp.Verify")
	defer span.End()

	email = normalizeEmail(email)

	rec, err := s.repo.LatestUnverified(ctx, email, PurposeRegistration)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify otp: %w", core.ErrInvalidCode)
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("otp.id", rec.ID))

	if !core.CompareTokenHash(code, rec.CodeHash) {
		return nil, s.recordFailedAttempt(ctx, rec)
	}

	now := s.now()
	if rec.IsExpired(now) {
		s.discard(ctx, rec.ID)
		return nil, fmt.Errorf("verify otp: %w", core.ErrCodeExpired)
	}

	claimed, err := s.repo.Claim(ctx, rec.ID, now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("verify otp: already used: %w", core.ErrInvalidCode)
	}

	defer s.discard(ctx, rec.ID)

	created, err := s.identities.CreateStudent(ctx, identity.NewStudent{
		Email:          email,
		PasswordHash:   rec.Payload.PasswordHash,
		Name:           rec.Payload.Name,
		Phone:          rec.Payload.Phone,
		ClassLevel:     rec.Payload.ClassLevel,
		ExamPreference: rec.Payload.ExamPreference,
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("create student: %w", err)
	}

	if err := s.identities.UpsertProfile(ctx, created); err != nil {
		s.logger.WarnContext(ctx, "student profile write failed",
			"user_id", created.ID,
			"error", err,
		)
	}

	s.logger.InfoContext(ctx, "student registered", "user_id", created.ID)
	return created, nil
}

func (s *Service) recordFailedAttempt(ctx context.Context, rec *Record) error {
	attempts, err := s.repo.IncrementAttempts(ctx, rec.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("verify otp: %w", core.ErrInvalidCode)
		}
		return err
	}

	if attempts >= s.cfg.MaxAttempts {
		s.discard(ctx, rec.ID)
		core.AddSpanEvent(ctx, "otp.attempt_cap", attribute.String("otp.id", rec.ID))
		s.logger.WarnContext(ctx, "otp attempt cap reached",
			"event", "security",
			"otp_id", rec.ID,
			"attempts", attempts,
		)
		return fmt.Errorf("verify otp: %w", core.ErrTooManyAttempts)
	}

	return fmt.Errorf("verify otp: %w", core.ErrInvalidCode)
}

func (s *Service) discard(ctx context.Context, id string) {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "otp delete failed", "otp_id", id, "error", err)
	}
}

func (s *Service) CheckStatus(ctx context.Context, email string) (*Status, error) {
	status := &Status{MaxAttempts: s.cfg.MaxAttempts}

	rec, err := s.repo.LatestUnverified(ctx, normalizeEmail(email), PurposeRegistration)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return status, nil
		}
		return nil, err
	}

	now := s.now()
	if rec.IsExpired(now) {
		s.discard(ctx, rec.ID)
		return status, nil
	}

	status.Pending = true
	status.RemainingSeconds = rec.RemainingSeconds(now)
	status.Attempts = rec.Attempts
	return status, nil
}

func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
