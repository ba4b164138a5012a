// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrWrongPortal        = fmt.Errorf("account belongs to another portal: %w", core.ErrForbidden)
)

// purgeGrace keeps expired sessions around for a day so a late reuse
// attempt still finds its family and is reported as reuse.
const purgeGrace = 24 * time.Hour

type UserInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	TokenVersion int
	CreatedAt    time.Time
}

// UserProvider is implemented by the identity registry. Accounts are never
// created through auth; students come from OTP verification and the admin
// from provisioning.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// ClientMeta describes the device a session was opened or rotated from.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

type Service struct {
	sessions    Repository
	jwt         *JWTManager
	users       UserProvider
	revocations Revocations
	now         func() time.Time
}

func NewService(
	sessions Repository,
	jwt *JWTManager,
	users UserProvider,
	revocations Revocations,
) *Service {
	return &Service{
		sessions:    sessions,
		jwt:         jwt,
		users:       users,
		revocations: revocations,
		now:         time.Now,
	}
}

// Login verifies the password before looking at the role, so a portal
// mismatch is only revealed to someone holding valid credentials. The
// portal is recorded on the new chain and every rotation inherits it.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	portal Portal,
	meta ClientMeta,
) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(req.Password, &user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if !portal.Admits(user.Role) {
		return nil, ErrWrongPortal
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.users.UpdatePassword(ctx, user.ID, newHash)
	}

	now := s.now()
	next, raw, err := s.newSession(user.ID, meta, now)
	if err != nil {
		return nil, err
	}
	next.FamilyID = uuid.New().String()
	next.Portal = portal

	if err := s.sessions.Open(ctx, next); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	return s.respond(user, next, raw, now)
}

// Refresh exchanges a refresh token for a new pair. A refresh arriving
// through a portal other than the one the chain was opened on is refused
// without touching the chain. Presenting a token that was already rotated,
// or losing the rotation to a concurrent refresh, revokes the whole family.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
	portal Portal,
	meta ClientMeta,
) (*AuthResponse, error) {
	now := s.now()

	current, err := s.sessions.ByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	switch {
	case current.Rotated():
		s.burnFamily(ctx, current, "rotated refresh token presented", now)
		return nil, ErrTokenReuse
	case current.Revoked():
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	case current.Expired(now):
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	case portal != PortalAny && portal != current.Portal:
		return nil, ErrWrongPortal
	}

	user, err := s.users.GetByID(ctx, current.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("refresh: inactive account: %w", core.ErrTokenRevoked)
	}
	if !current.Portal.Admits(user.Role) {
		s.burnFamily(ctx, current, "role no longer admitted by session portal", now)
		return nil, ErrWrongPortal
	}

	next, raw, err := s.newSession(user.ID, meta, now)
	if err != nil {
		return nil, err
	}

	rotated, err := s.sessions.Rotate(ctx, current.ID, next, now)
	if err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	if !rotated {
		s.burnFamily(ctx, current, "refresh token rotated concurrently", now)
		return nil, ErrTokenReuse
	}

	return s.respond(user, next, raw, now)
}

func (s *Service) burnFamily(ctx context.Context, sess *Session, reason string, now time.Time) {
	n, err := s.sessions.RevokeFamily(ctx, sess.FamilyID, now)
	slog.WarnContext(ctx, "session family revoked",
		"event", "security",
		"reason", reason,
		"user_id", sess.UserID,
		"family_id", sess.FamilyID,
		"portal", sess.Portal,
		"revoked", n,
		"error", err,
	)
}

func (s *Service) Logout(ctx context.Context, refreshToken, userID string) error {
	sess, err := s.sessions.ByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find session: %w", err)
	}

	if sess.UserID != userID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	if err := s.sessions.Revoke(ctx, sess.ID, s.now()); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if _, err := s.sessions.RevokeUser(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}

	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return nil
}

// RevokeAccessToken blocks a still-valid access token until it expires.
func (s *Service) RevokeAccessToken(ctx context.Context, claims *middleware.AccessTokenClaims) error {
	if claims == nil || claims.JTI == "" {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.JTI, claims.ExpiresAt)
}

func (s *Service) GetActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	active, err := s.sessions.Active(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	out := make([]SessionInfo, 0, len(active))
	for _, sess := range active {
		out = append(out, SessionInfo{
			ID:        sess.ID,
			Portal:    sess.Portal,
			UserAgent: sess.UserAgent,
			IPAddress: sess.IPAddress,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
		})
	}

	return out, nil
}

func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.sessions.ByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	if sess.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	if err := s.sessions.Revoke(ctx, sessionID, s.now()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordWithRehash(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.LogoutAll(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}

	return nil
}

// VerifyAccessToken checks the signature, the revocation list and the
// caller's current token version. The version check hits the database on
// every request so a deactivated account loses access immediately.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.Revoked(ctx, claims.JTI)
	if err != nil {
		slog.WarnContext(ctx, "token revocation list unavailable", "error", err)
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	if err := s.ValidateTokenVersion(ctx, claims.UserID, claims.TokenVersion); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
		}
		return nil, err
	}

	return claims, nil
}

// PurgeExpiredTokens drops sessions that expired more than purgeGrace ago.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.sessions.Purge(ctx, s.now().Add(-purgeGrace))
}

func (s *Service) ValidateTokenVersion(ctx context.Context, userID string, tokenVersion int) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if !user.IsActive || tokenVersion < user.TokenVersion {
		return fmt.Errorf("validate token version: %w", core.ErrTokenRevoked)
	}

	return nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := userResponse(user)
	return &resp, nil
}

// newSession mints a refresh token for userID. Family and portal are left
// for the caller: Login starts a chain, Rotate inherits one.
func (s *Service) newSession(userID string, meta ClientMeta, now time.Time) (*Session, string, error) {
	raw, err := core.GenerateRefreshToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate refresh token: %w", err)
	}

	return &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: core.HashToken(raw),
		ExpiresAt: now.Add(s.jwt.RefreshTokenTTL()),
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	}, raw, nil
}

func (s *Service) respond(user *UserInfo, sess *Session, refreshToken string, now time.Time) (*AuthResponse, error) {
	accessToken, expiresAt, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		Portal:       sess.Portal,
		TokenVersion: user.TokenVersion,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &AuthResponse{
		User:      userResponse(user),
		Portal:    sess.Portal,
		SessionID: sess.ID,
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int(s.jwt.AccessTokenTTL() / time.Second),
			ExpiresAt:    expiresAt,
		},
	}, nil
}

func userResponse(user *UserInfo) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
