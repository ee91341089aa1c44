package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"mattepass-service/internal/domain/auth"
	"mattepass-service/internal/pkg/clock"
	xerrors "mattepass-service/internal/pkg/errors"
	"mattepass-service/internal/pkg/jwt"
	"mattepass-service/internal/pkg/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeTx struct {
	mu    sync.Mutex
	locks []int64
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(nil)
}

func (f *fakeTx) LockKeyWithTx(ctx context.Context, tx pgx.Tx, key int64) error {
	f.locks = append(f.locks, key)
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users []*auth.User
}

func (r *fakeUsers) Create(ctx context.Context, u *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return xerrors.ErrDuplicateEntry
		}
	}
	u.ID = int64(len(r.users) + 1)
	u.CreatedAt = time.Now()
	r.users = append(r.users, u)
	return nil
}

func (r *fakeUsers) CreateWithTx(ctx context.Context, tx pgx.Tx, u *auth.User) error {
	return r.Create(ctx, u)
}

func (r *fakeUsers) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (r *fakeUsers) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (r *fakeUsers) ListByRole(ctx context.Context, role auth.Role) ([]auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []auth.User{}
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUsers) CountByRoleWithTx(ctx context.Context, tx pgx.Tx, role auth.Role) (int64, error) {
	users, _ := r.ListByRole(ctx, role)
	return int64(len(users)), nil
}

func (r *fakeUsers) UpdateRole(ctx context.Context, id int64, role auth.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			u.Role = role
			return nil
		}
	}
	return xerrors.ErrNotFound
}

type fixture struct {
	svc   *AuthService
	users *fakeUsers
	tx    *fakeTx
	mr    *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	manager, err := jwt.NewManager(priv, jwt.Config{Issuer: "mattepass", Audience: "mattepass-users", TTL: time.Hour})
	require.NoError(t, err)

	users := &fakeUsers{}
	tx := &fakeTx{}
	svc := NewAuthService(tx, users, manager, session.NewManager(client), session.NewRateLimiter(client), clock.System(), zap.NewNop())
	svc.bcryptCost = bcrypt.MinCost
	return &fixture{svc: svc, users: users, tx: tx, mr: mr}
}

func registerReq(username string) *auth.RegisterRequest {
	return &auth.RegisterRequest{Username: username, Email: username + "@example.com", Password: "correct-horse"}
}

func loginReq(username, password string) *auth.LoginRequest {
	return &auth.LoginRequest{Username: username, Password: password, IPAddress: "10.0.0.1", UserAgent: "test"}
}

func TestRegisterAlwaysCreatesClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.svc.Register(ctx, registerReq("ana"))
	require.NoError(t, err)
	assert.Equal(t, auth.RoleClient, info.Role)
	assert.NotEqual(t, "correct-horse", f.users.users[0].PasswordHash)

	_, err = f.svc.Register(ctx, registerReq("ana"))
	assert.ErrorIs(t, err, xerrors.ErrDuplicateEntry)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		req  *auth.RegisterRequest
	}{
		{"short username", &auth.RegisterRequest{Username: "ab", Email: "ab@example.com", Password: "correct-horse"}},
		{"bad email", &auth.RegisterRequest{Username: "ana", Email: "ana", Password: "correct-horse"}},
		{"short password", &auth.RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.req)
			assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
		})
	}
	assert.Empty(t, f.users.users)
}

func TestLoginValidateLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterVendor(ctx, registerReq("bar-do-ze"))
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, loginReq("bar-do-ze", "correct-horse"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, 3600, res.ExpiresIn)
	assert.Equal(t, auth.RoleVendor, res.User.Role)

	claims, err := f.svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "vendor", claims.Role)

	require.NoError(t, f.svc.Logout(ctx, claims))

	_, err = f.svc.ValidateToken(ctx, res.AccessToken)
	assert.ErrorIs(t, err, xerrors.ErrSessionExpired)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ValidateToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)
}

func TestLoginWrongPasswordThenRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerReq("ana"))
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, loginReq("nobody", "whatever"))
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)

	for i := 0; i < 5; i++ {
		_, err = f.svc.Login(ctx, loginReq("ana", "wrong-password"))
		assert.ErrorIs(t, err, xerrors.ErrUnauthorized)
	}

	_, err = f.svc.Login(ctx, loginReq("ana", "correct-horse"))
	assert.ErrorIs(t, err, xerrors.ErrRateLimited)

	f.mr.FastForward(16 * time.Minute)
	_, err = f.svc.Login(ctx, loginReq("ana", "correct-horse"))
	assert.NoError(t, err)
}

func TestCreateFirstAdminOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.svc.CreateFirstAdmin(ctx, registerReq("root"))
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, info.Role)
	assert.Equal(t, []int64{adminBootstrapLockKey}, f.tx.locks)

	_, err = f.svc.CreateFirstAdmin(ctx, registerReq("root2"))
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	require.NoError(t, f.svc.EnsureAdmin(ctx, "root3", "root3@example.com", "correct-horse"))
	admins, err := f.users.ListByRole(ctx, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

func TestEnsureAdminSkipsWithoutCredentials(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.EnsureAdmin(context.Background(), "", "", ""))
	assert.Empty(t, f.users.users)
}

func TestPromoteAndListVendors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	client, err := f.svc.Register(ctx, registerReq("ana"))
	require.NoError(t, err)
	_, err = f.svc.RegisterVendor(ctx, registerReq("kiosk"))
	require.NoError(t, err)

	vendors, err := f.svc.ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Equal(t, "kiosk", vendors[0].Username)

	promoted, err := f.svc.PromoteToAdmin(ctx, client.ID, 99)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, promoted.Role)

	_, err = f.svc.PromoteToAdmin(ctx, 404, 99)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestPromotionDropsExistingSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	client, err := f.svc.Register(ctx, registerReq("ana"))
	require.NoError(t, err)
	res, err := f.svc.Login(ctx, loginReq("ana", "correct-horse"))
	require.NoError(t, err)

	claims, err := f.svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "client", claims.Role)

	_, err = f.svc.PromoteToAdmin(ctx, client.ID, 99)
	require.NoError(t, err)

	_, err = f.svc.ValidateToken(ctx, res.AccessToken)
	assert.ErrorIs(t, err, xerrors.ErrSessionExpired, "a token minted before promotion carries the old role")

	res, err = f.svc.Login(ctx, loginReq("ana", "correct-horse"))
	require.NoError(t, err)
	claims, err = f.svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestLoginWithClockBehindWallTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.clock = clock.NewFake(time.Date(2001, time.January, 1, 12, 0, 0, 0, time.UTC))

	_, err := f.svc.Register(ctx, registerReq("ana"))
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, loginReq("ana", "correct-horse"))
	require.NoError(t, err)
	assert.True(t, time.Date(2001, time.January, 1, 13, 0, 0, 0, time.UTC).Equal(res.ExpiresAt))
	assert.Equal(t, time.Hour, f.mr.TTL(fmt.Sprintf("session:%d:%s", res.User.ID, sessionJTI(t, f))))
}

func sessionJTI(t *testing.T, f *fixture) string {
	t.Helper()
	var found string
	for _, key := range f.mr.Keys() {
		if strings.HasPrefix(key, "session:") {
			found = key[strings.LastIndex(key, ":")+1:]
		}
	}
	require.NotEmpty(t, found)
	return found
}
