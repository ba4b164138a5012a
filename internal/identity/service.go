// AngelaMos | 2026
// service.go

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/examprep/internal/auth"
	"github.com/carterperez-dev/examprep/internal/core"
)

var _ auth.UserProvider = (*Service)(nil)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ResolveRole answers which portal an email belongs to. Lookups run in
// order: users.role, then the legacy_admins and student_profiles tables.
// Any lookup error resolves to none so a broken store never grants a role.
func (s *Service) ResolveRole(ctx context.Context, email string) RoleResolution {
	email = normalizeEmail(email)
	if email == "" {
		return noneResolution()
	}

	role, err := s.repo.RoleByEmail(ctx, email)
	switch {
	case err == nil && IsKnownRole(role):
		return resolution(role)
	case err != nil && !errors.Is(err, core.ErrNotFound):
		s.logger.WarnContext(ctx, "role lookup failed", "error", err)
		return noneResolution()
	}

	isLegacyAdmin, err := s.repo.LegacyAdminExists(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "legacy admin lookup failed", "error", err)
		return noneResolution()
	}
	if isLegacyAdmin {
		return resolution(RoleAdmin)
	}

	hasProfile, err := s.repo.StudentProfileExists(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "student profile lookup failed", "error", err)
		return noneResolution()
	}
	if hasProfile {
		return resolution(RoleStudent)
	}

	return noneResolution()
}

func resolution(role string) RoleResolution {
	return RoleResolution{Role: role, DisplayRole: DisplayRole(role)}
}

func noneResolution() RoleResolution {
	return RoleResolution{Role: RoleNone}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	identity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(identity), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	identity, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(identity), nil
}

func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, normalizeEmail(email))
}

// CreateStudent registers a student whose email has already been verified.
func (s *Service) CreateStudent(
	ctx context.Context,
	req NewStudent,
) (*Identity, error) {
	identity := &Identity{
		ID:             uuid.New().String(),
		Email:          normalizeEmail(req.Email),
		PasswordHash:   req.PasswordHash,
		Name:           strings.TrimSpace(req.Name),
		Phone:          strings.TrimSpace(req.Phone),
		ClassLevel:     req.ClassLevel,
		ExamPreference: req.ExamPreference,
		Role:           RoleStudent,
		IsActive:       true,
	}

	if err := s.repo.Create(ctx, identity); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, fmt.Errorf("create student: %w", core.ErrConflict)
		}
		return nil, err
	}

	return identity, nil
}

func (s *Service) UpsertProfile(ctx context.Context, identity *Identity) error {
	return s.repo.UpsertProfile(ctx, identity)
}

func (s *Service) CreateAdmin(
	ctx context.Context,
	email, passwordHash, name string,
) (*Identity, error) {
	identity := &Identity{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(name),
		Role:         RoleAdmin,
		IsActive:     true,
	}

	if err := s.repo.CreateAdmin(ctx, identity); err != nil {
		return nil, err
	}

	return identity, nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*Identity, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateProfileRequest,
) (*Identity, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	identity, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		identity.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		identity.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.ClassLevel != nil {
		identity.ClassLevel = *req.ClassLevel
	}
	if req.ExamPreference != nil {
		identity.ExamPreference = *req.ExamPreference
	}

	if err := s.repo.Update(ctx, identity); err != nil {
		return nil, err
	}

	if identity.IsStudent() {
		if err := s.repo.UpsertProfile(ctx, identity); err != nil {
			s.logger.WarnContext(ctx, "student profile sync failed",
				"user_id", identity.ID,
				"error", err,
			)
		}
	}

	return identity, nil
}

// DeleteMe soft deletes the caller. The single admin cannot remove itself.
func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	identity, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if identity.IsAdmin() {
		return fmt.Errorf("delete me: admin identity: %w", core.ErrForbidden)
	}

	return s.repo.SoftDelete(ctx, userID)
}

func (s *Service) ListStudents(
	ctx context.Context,
	params ListStudentsParams,
) ([]Identity, int, error) {
	return s.repo.ListStudents(ctx, params)
}

func (s *Service) GetStudent(ctx context.Context, id string) (*Identity, error) {
	identity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !identity.IsStudent() {
		return nil, fmt.Errorf("get student: %w", core.ErrNotFound)
	}

	return identity, nil
}

// SetActive toggles a student account. Deactivation also bumps the token
// version so outstanding access tokens stop validating.
func (s *Service) SetActive(
	ctx context.Context,
	id string,
	active bool,
) (*Identity, error) {
	identity, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	identity.IsActive = active
	if err := s.repo.Update(ctx, identity); err != nil {
		return nil, err
	}

	if !active {
		if err := s.repo.IncrementTokenVersion(ctx, id); err != nil {
			return nil, err
		}
	}

	return identity, nil
}

func toUserInfo(i *Identity) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           i.ID,
		Email:        i.Email,
		Name:         i.Name,
		PasswordHash: i.PasswordHash,
		Role:         i.Role,
		IsActive:     i.IsActive,
		TokenVersion: i.TokenVersion,
		CreatedAt:    i.CreatedAt,
	}
}
