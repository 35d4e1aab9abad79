package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"redirect-manager/internal/model"
	"redirect-manager/internal/tokenhash"
)

type fakeUserStore struct {
	users map[string]model.User // by id
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	user, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

type fakeRefreshStore struct {
	tokens map[string]model.RefreshToken // by id
}

func newFakeRefreshStore() *fakeRefreshStore {
	return &fakeRefreshStore{tokens: map[string]model.RefreshToken{}}
}

func (s *fakeRefreshStore) Create(_ context.Context, t model.RefreshToken) error {
	s.tokens[t.ID] = t
	return nil
}

func (s *fakeRefreshStore) FindByHashedSecret(_ context.Context, hashedSecret string) (model.RefreshToken, bool, error) {
	for _, t := range s.tokens {
		if t.HashedSecret == hashedSecret {
			return t, true, nil
		}
	}
	return model.RefreshToken{}, false, nil
}

func (s *fakeRefreshStore) Rotate(_ context.Context, oldID string, replacement model.RefreshToken) error {
	old, ok := s.tokens[oldID]
	if !ok {
		return model.ErrInvalidCredentials
	}
	if old.Revoked {
		return model.ErrRefreshTokenReuse
	}

	old.Revoked = true
	s.tokens[oldID] = old
	s.tokens[replacement.ID] = replacement
	return nil
}

func (s *fakeRefreshStore) DeleteByID(_ context.Context, id string) error {
	delete(s.tokens, id)
	return nil
}

func (s *fakeRefreshStore) DeleteAllForUser(_ context.Context, userID string) error {
	for id, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, id)
		}
	}
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeRefreshStore) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &fakeUserStore{users: map[string]model.User{
		"user-1": {ID: "user-1", Username: "alice", PasswordHash: string(hash), Role: model.RoleAdmin},
	}}
	refresh := newFakeRefreshStore()
	jwtService := NewJWTService(testJWTSecret, 15*time.Minute)

	svc := NewAuthService(users, refresh, jwtService,
		[]string{"pepper-new", "pepper-old"}, tokenhash.AlgorithmSHA256, 72*time.Hour)
	return svc, refresh
}

func TestAuthService_LoginSameErrorForUnknownUserAndBadPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, _, _, errUnknown := svc.Login(ctx, "nobody", "whatever")
	_, _, _, errBadPass := svc.Login(ctx, "alice", "wrong password")

	require.ErrorIs(t, errUnknown, model.ErrInvalidCredentials)
	require.ErrorIs(t, errBadPass, model.ErrInvalidCredentials)
	require.Equal(t, errUnknown, errBadPass)
}

func TestAuthService_LoginStoresOnlyHashedSecret(t *testing.T) {
	t.Parallel()

	svc, refresh := newTestAuthService(t)

	access, rawRefresh, user, err := svc.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, rawRefresh)
	require.Equal(t, "user-1", user.ID)

	require.Len(t, refresh.tokens, 1)
	for _, stored := range refresh.tokens {
		require.NotEqual(t, rawRefresh, stored.HashedSecret)
		expected, hashErr := tokenhash.Hash(rawRefresh, tokenhash.AlgorithmSHA256, "pepper-new")
		require.NoError(t, hashErr)
		require.Equal(t, expected, stored.HashedSecret)
	}
}

func TestAuthService_RefreshRotates(t *testing.T) {
	t.Parallel()

	svc, refresh := newTestAuthService(t)
	ctx := context.Background()

	_, rawRefresh, _, err := svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)

	access, newRaw, err := svc.Refresh(ctx, rawRefresh)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEqual(t, rawRefresh, newRaw)

	// Old row stays behind as a revoked tombstone next to the new token.
	require.Len(t, refresh.tokens, 2)

	// The rotated secret keeps working.
	_, _, err = svc.Refresh(ctx, newRaw)
	require.NoError(t, err)
}

func TestAuthService_ReuseRevokesEverySession(t *testing.T) {
	t.Parallel()

	svc, refresh := newTestAuthService(t)
	ctx := context.Background()

	_, rawRefresh, _, err := svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)

	// A second independent session that must die with the reuse.
	_, otherSession, _, err := svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)

	_, _, err = svc.Refresh(ctx, rawRefresh)
	require.NoError(t, err)

	// Replaying the consumed secret trips the tombstone.
	_, _, err = svc.Refresh(ctx, rawRefresh)
	require.ErrorIs(t, err, model.ErrRefreshTokenReuse)
	require.Empty(t, refresh.tokens)

	_, _, err = svc.Refresh(ctx, otherSession)
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestAuthService_ExpiredRefreshIsDeleted(t *testing.T) {
	t.Parallel()

	svc, refresh := newTestAuthService(t)
	ctx := context.Background()

	_, rawRefresh, _, err := svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)

	for id, token := range refresh.tokens {
		token.ExpiresAt = time.Now().Add(-time.Minute)
		refresh.tokens[id] = token
	}

	_, _, err = svc.Refresh(ctx, rawRefresh)
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
	require.Empty(t, refresh.tokens)
}

func TestAuthService_RefreshAcceptsOlderPepper(t *testing.T) {
	t.Parallel()

	svc, refresh := newTestAuthService(t)
	ctx := context.Background()

	_, rawRefresh, _, err := svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)

	// Rewrite the stored digest as if it had been minted under the retired
	// pepper.
	for id, token := range refresh.tokens {
		rehashed, hashErr := tokenhash.Hash(rawRefresh, tokenhash.AlgorithmSHA256, "pepper-old")
		require.NoError(t, hashErr)
		token.HashedSecret = rehashed
		refresh.tokens[id] = token
	}

	_, _, err = svc.Refresh(ctx, rawRefresh)
	require.NoError(t, err)
}

func TestAuthService_LogoutIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, refresh := newTestAuthService(t)
	ctx := context.Background()

	_, rawRefresh, _, err := svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, rawRefresh, false))
	require.Empty(t, refresh.tokens)

	// Repeating with the same or an unknown secret stays a no-op.
	require.NoError(t, svc.Logout(ctx, rawRefresh, false))
	require.NoError(t, svc.Logout(ctx, "", false))
}

func TestAuthService_LogoutAllDevices(t *testing.T) {
	t.Parallel()

	svc, refresh := newTestAuthService(t)
	ctx := context.Background()

	_, first, _, err := svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	_, _, _, err = svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	require.Len(t, refresh.tokens, 2)

	require.NoError(t, svc.Logout(ctx, first, true))
	require.Empty(t, refresh.tokens)
}
