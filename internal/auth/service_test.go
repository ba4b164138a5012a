// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/examprep/internal/config"
	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/middleware"
)

type mockUserProvider struct {
	mock.Mock
}

func (m *mockUserProvider) GetByEmail(ctx context.Context, email string) (*UserInfo, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserInfo), args.Error(1)
}

func (m *mockUserProvider) GetByID(ctx context.Context, id string) (*UserInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserInfo), args.Error(1)
}

func (m *mockUserProvider) IncrementTokenVersion(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockUserProvider) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

// memSessions is an in-memory Repository. Rotate holds the lock across
// claim and insert, matching the single statement in Postgres.
type memSessions struct {
	mu     sync.Mutex
	byID   map[string]*Session
	purged time.Time
}

func newMemSessions() *memSessions {
	return &memSessions{byID: map[string]*Session{}}
}

func (m *memSessions) Open(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.CreatedAt = time.Now()
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSessions) ByHash(_ context.Context, hash string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.byID {
		if s.TokenHash == hash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memSessions) ByID(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Rotate(_ context.Context, prevID string, next *Session, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.byID[prevID]
	if !ok || prev.UserID != next.UserID || prev.Rotated() || prev.Revoked() || prev.Expired(at) {
		return false, nil
	}

	prev.UsedAt = &at
	prev.ReplacedByID = &next.ID
	next.FamilyID = prev.FamilyID
	next.Portal = prev.Portal
	next.CreatedAt = at
	cp := *next
	m.byID[next.ID] = &cp
	return true, nil
}

func (m *memSessions) revokeWhere(match func(*Session) bool, at time.Time) int64 {
	var n int64
	for _, s := range m.byID {
		if match(s) && !s.Revoked() {
			s.RevokedAt = &at
			n++
		}
	}
	return n
}

func (m *memSessions) Revoke(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.revokeWhere(func(s *Session) bool { return s.ID == id }, at) == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (m *memSessions) RevokeFamily(_ context.Context, familyID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revokeWhere(func(s *Session) bool { return s.FamilyID == familyID }, at), nil
}

func (m *memSessions) RevokeUser(_ context.Context, userID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revokeWhere(func(s *Session) bool { return s.UserID == userID }, at), nil
}

func (m *memSessions) Active(_ context.Context, userID string, now time.Time) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Session
	for _, s := range m.byID {
		if s.UserID == userID && !s.Rotated() && !s.Revoked() && !s.Expired(now) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessions) Purge(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purged = before
	var n int64
	for id, s := range m.byID {
		if s.ExpiresAt.Before(before) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) all() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, *s)
	}
	return out
}

type memRevocations struct {
	mu   sync.Mutex
	jtis map[string]time.Time
}

func (r *memRevocations) Revoke(_ context.Context, jti string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jtis == nil {
		r.jtis = map[string]time.Time{}
	}
	r.jtis[jti] = until
	return nil
}

func (r *memRevocations) Revoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jtis[jti]
	return ok, nil
}

// staticUsers serves a fixed identity set and is safe for concurrent use.
type staticUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func (s *staticUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *staticUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *staticUsers) IncrementTokenVersion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id].TokenVersion++
	return nil
}

func (s *staticUsers) UpdatePassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id].PasswordHash = hash
	return nil
}

func (s *staticUsers) setRole(id, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id].Role = role
}

func newTestJWTManager(t *testing.T) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(privPath, pubPath))

	mgr, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     privPath,
		PublicKeyPath:      pubPath,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "examprep-test",
		Audience:           "examprep-test",
	})
	require.NoError(t, err)
	return mgr
}

func testUser(t *testing.T, role string, active bool) *UserInfo {
	t.Helper()

	hash, err := core.HashPassword("correct-horse")
	require.NoError(t, err)

	return &UserInfo{
		ID:           "user-1",
		Email:        "user@example.com",
		Name:         "Test User",
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	}
}

type sessionFixture struct {
	svc      *Service
	sessions *memSessions
	users    *staticUsers
	revoked  *memRevocations
}

func newSessionFixture(t *testing.T, role string) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		sessions: newMemSessions(),
		users:    &staticUsers{users: map[string]*UserInfo{"user-1": testUser(t, role, true)}},
		revoked:  &memRevocations{},
	}
	f.svc = NewService(f.sessions, newTestJWTManager(t), f.users, f.revoked)
	return f
}

func (f *sessionFixture) login(t *testing.T, portal Portal) *AuthResponse {
	t.Helper()

	resp, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "correct-horse",
	}, portal, ClientMeta{UserAgent: "test-agent", IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	return resp
}

func (f *sessionFixture) refresh(token string, portal Portal) (*AuthResponse, error) {
	return f.svc.Refresh(context.Background(), token, portal, ClientMeta{UserAgent: "test-agent"})
}

func TestLogin_PortalDispatch(t *testing.T) {
	ctx := context.Background()
	jwtMgr := newTestJWTManager(t)

	tests := []struct {
		name     string
		role     string
		portal   Portal
		password string
		active   bool
		wantErr  error
	}{
		{"student on student portal", "student", PortalStudent, "correct-horse", true, nil},
		{"admin on admin portal", "admin", PortalAdmin, "correct-horse", true, nil},
		{"student on generic login", "student", PortalAny, "correct-horse", true, nil},
		{"student on admin portal", "student", PortalAdmin, "correct-horse", true, ErrWrongPortal},
		{"admin on student portal", "admin", PortalStudent, "correct-horse", true, ErrWrongPortal},
		{"wrong password hides portal", "student", PortalAdmin, "wrong-pass", true, ErrInvalidCredentials},
		{"inactive account", "student", PortalStudent, "correct-horse", false, ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(mockUserProvider)
			users.On("GetByEmail", ctx, "user@example.com").
				Return(testUser(t, tt.role, tt.active), nil)
			sessions := newMemSessions()

			svc := NewService(sessions, jwtMgr, users, &memRevocations{})
			resp, err := svc.Login(ctx, LoginRequest{
				Email:    "user@example.com",
				Password: tt.password,
			}, tt.portal, ClientMeta{UserAgent: "test-agent", IPAddress: "127.0.0.1"})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				assert.Empty(t, sessions.all())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.role, resp.User.Role)
			assert.Equal(t, tt.portal, resp.Portal)
			assert.NotEmpty(t, resp.Tokens.AccessToken)

			stored := sessions.all()
			require.Len(t, stored, 1)
			assert.Equal(t, tt.portal, stored[0].Portal)
			assert.Equal(t, resp.SessionID, stored[0].ID)
			assert.Equal(t, core.HashToken(resp.Tokens.RefreshToken), stored[0].TokenHash)
		})
	}
}

func TestLogin_WrongPortalIsForbidden(t *testing.T) {
	f := newSessionFixture(t, "student")

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "correct-horse",
	}, PortalAdmin, ClientMeta{})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newSessionFixture(t, "student")

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	}, PortalStudent, ClientMeta{})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_PortalBinding(t *testing.T) {
	tests := []struct {
		name    string
		opened  Portal
		via     Portal
		wantErr error
	}{
		{"same portal", PortalStudent, PortalStudent, nil},
		{"generic refresh of student chain", PortalStudent, PortalAny, nil},
		{"student chain through admin refresh", PortalStudent, PortalAdmin, ErrWrongPortal},
		{"generic chain through student refresh", PortalAny, PortalStudent, ErrWrongPortal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t, "student")
			first := f.login(t, tt.opened)

			resp, err := f.refresh(first.Tokens.RefreshToken, tt.via)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				sess, findErr := f.sessions.ByID(context.Background(), first.SessionID)
				require.NoError(t, findErr)
				assert.False(t, sess.Rotated(), "a refused refresh leaves the chain alone")
				assert.False(t, sess.Revoked())

				_, err = f.refresh(first.Tokens.RefreshToken, tt.opened)
				assert.NoError(t, err, "the right portal can still refresh")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.opened, resp.Portal, "rotation keeps the login portal")
			assert.NotEqual(t, first.Tokens.RefreshToken, resp.Tokens.RefreshToken)

			claims, err := f.svc.VerifyAccessToken(context.Background(), resp.Tokens.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, string(tt.opened), claims.Portal)
		})
	}
}

func TestRefresh_ReuseRevokesFamily(t *testing.T) {
	f := newSessionFixture(t, "student")
	first := f.login(t, PortalStudent)

	second, err := f.refresh(first.Tokens.RefreshToken, PortalStudent)
	require.NoError(t, err)

	_, err = f.refresh(first.Tokens.RefreshToken, PortalStudent)
	assert.ErrorIs(t, err, ErrTokenReuse)

	_, err = f.refresh(second.Tokens.RefreshToken, PortalStudent)
	assert.ErrorIs(t, err, core.ErrTokenRevoked, "the leaked chain is dead")

	other := f.login(t, PortalStudent)
	_, err = f.refresh(other.Tokens.RefreshToken, PortalStudent)
	assert.NoError(t, err, "other chains of the same user survive")
}

func TestRefresh_ConcurrentRotationHasOneWinner(t *testing.T) {
	f := newSessionFixture(t, "student")
	first := f.login(t, PortalStudent)

	const racers = 8
	results := make([]*AuthResponse, racers)
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.refresh(first.Tokens.RefreshToken, PortalStudent)
		}()
	}
	wg.Wait()

	var winner *AuthResponse
	for i := range racers {
		if errs[i] == nil {
			require.Nil(t, winner, "only one refresh may rotate the token")
			winner = results[i]
			continue
		}
		assert.ErrorIs(t, errs[i], ErrTokenReuse)
	}
	require.NotNil(t, winner)

	_, err := f.refresh(winner.Tokens.RefreshToken, PortalStudent)
	assert.ErrorIs(t, err, core.ErrTokenRevoked, "losers burn the family")
}

func TestRefresh_RoleLeftPortal(t *testing.T) {
	f := newSessionFixture(t, "admin")
	first := f.login(t, PortalAdmin)

	f.users.setRole("user-1", "student")

	_, err := f.refresh(first.Tokens.RefreshToken, PortalAdmin)
	assert.ErrorIs(t, err, ErrWrongPortal)

	sess, err := f.sessions.ByID(context.Background(), first.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.Revoked())
}

func TestRefresh_Expired(t *testing.T) {
	f := newSessionFixture(t, "student")
	first := f.login(t, PortalStudent)

	f.svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err := f.refresh(first.Tokens.RefreshToken, PortalStudent)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestRefresh_UnknownToken(t *testing.T) {
	f := newSessionFixture(t, "student")

	_, err := f.refresh("never-issued", PortalAny)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, "student")
	resp := f.login(t, PortalStudent)

	claims, err := f.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, resp.Tokens.RefreshToken, "user-1"))
	require.NoError(t, f.svc.RevokeAccessToken(ctx, claims))

	_, err = f.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = f.refresh(resp.Tokens.RefreshToken, PortalStudent)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestLogoutAllBumpsTokenVersion(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, "student")
	resp := f.login(t, PortalStudent)
	f.login(t, PortalAny)

	require.NoError(t, f.svc.LogoutAll(ctx, "user-1"))

	active, err := f.svc.GetActiveSessions(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = f.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestGetActiveSessionsShowsPortal(t *testing.T) {
	f := newSessionFixture(t, "student")
	f.login(t, PortalStudent)

	active, err := f.svc.GetActiveSessions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, PortalStudent, active[0].Portal)
	assert.Equal(t, "test-agent", active[0].UserAgent)
}

func TestPurgeExpiredTokensKeepsGrace(t *testing.T) {
	f := newSessionFixture(t, "student")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	_, err := f.svc.PurgeExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(-purgeGrace), f.sessions.purged)
}

func TestPortalAdmits(t *testing.T) {
	tests := []struct {
		portal Portal
		role   string
		want   bool
	}{
		{PortalAny, middleware.RoleStudent, true},
		{PortalAny, middleware.RoleAdmin, true},
		{PortalAny, "guest", false},
		{PortalStudent, middleware.RoleStudent, true},
		{PortalStudent, middleware.RoleAdmin, false},
		{PortalAdmin, middleware.RoleAdmin, true},
		{PortalAdmin, middleware.RoleStudent, false},
		{Portal(""), middleware.RoleStudent, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.portal.Admits(tt.role), "%q admits %q", tt.portal, tt.role)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	mgr := newTestJWTManager(t)

	token, expiresAt, err := mgr.CreateAccessToken(AccessTokenClaims{
		UserID:       "user-1",
		Role:         "student",
		Portal:       PortalStudent,
		TokenVersion: 3,
	}, time.Now())
	require.NoError(t, err)

	claims, err := mgr.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "student", claims.Portal)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.NotEmpty(t, claims.JTI)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	mgr := newTestJWTManager(t)

	token, _, err := mgr.CreateAccessToken(AccessTokenClaims{
		UserID: "user-1",
		Role:   "student",
		Portal: PortalStudent,
	}, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = mgr.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestVerifyAccessToken_RoleOutsidePortal(t *testing.T) {
	mgr := newTestJWTManager(t)

	token, _, err := mgr.CreateAccessToken(AccessTokenClaims{
		UserID: "user-1",
		Role:   "student",
		Portal: PortalAdmin,
	}, time.Now())
	require.NoError(t, err)

	_, err = mgr.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyAccessToken_RejectsForeignKey(t *testing.T) {
	issuer := newTestJWTManager(t)
	verifier := newTestJWTManager(t)

	token, _, err := issuer.CreateAccessToken(
		AccessTokenClaims{UserID: "u", Role: "admin", Portal: PortalAdmin},
		time.Now(),
	)
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}
