package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"redirect-manager/internal/model"
	"redirect-manager/internal/tokenhash"
)

type fakeAPITokenStore struct {
	tokens map[string]model.APIToken // by id
}

func newFakeAPITokenStore() *fakeAPITokenStore {
	return &fakeAPITokenStore{tokens: map[string]model.APIToken{}}
}

func (s *fakeAPITokenStore) Create(_ context.Context, t model.APIToken) error {
	s.tokens[t.ID] = t
	return nil
}

func (s *fakeAPITokenStore) FindByHashedSecret(_ context.Context, hashedSecret string) (model.APIToken, bool, error) {
	for _, t := range s.tokens {
		if t.HashedSecret == hashedSecret {
			return t, true, nil
		}
	}
	return model.APIToken{}, false, nil
}

func (s *fakeAPITokenStore) FindByID(_ context.Context, id string) (model.APIToken, error) {
	t, ok := s.tokens[id]
	if !ok {
		return model.APIToken{}, model.ErrAPITokenNotFound
	}
	return t, nil
}

func (s *fakeAPITokenStore) FindAllForUser(_ context.Context, userID string) ([]model.APIToken, error) {
	out := make([]model.APIToken, 0)
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeAPITokenStore) TouchLastUsed(_ context.Context, id string, usedAt time.Time) error {
	if t, ok := s.tokens[id]; ok {
		t.LastUsedAt = &usedAt
		s.tokens[id] = t
	}
	return nil
}

func (s *fakeAPITokenStore) DeleteByID(_ context.Context, id string) error {
	delete(s.tokens, id)
	return nil
}

func newTestAPITokenService() (*APITokenService, *fakeAPITokenStore) {
	store := newFakeAPITokenStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewAPITokenService(store, logger, []string{"pepper-new", "pepper-old"}, tokenhash.AlgorithmSHA256)
	return svc, store
}

func validCreateRequest() model.CreateAPITokenRequest {
	return model.CreateAPITokenRequest{
		Name:      "ci",
		Scope:     model.ScopeRead,
		ExpiresAt: time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	}
}

func TestAPITokenService_CreateReturnsRawSecretOnce(t *testing.T) {
	t.Parallel()

	svc, store := newTestAPITokenService()

	token, raw, err := svc.Create(context.Background(), "user-1", validCreateRequest())
	require.NoError(t, err)
	require.True(t, IsAPITokenSecret(raw), "raw secret should be 64 hex chars, got %q", raw)

	stored := store.tokens[token.ID]
	require.NotEqual(t, raw, stored.HashedSecret)

	expected, err := tokenhash.Hash(raw, tokenhash.AlgorithmSHA256, "pepper-new")
	require.NoError(t, err)
	require.Equal(t, expected, stored.HashedSecret)
}

func TestAPITokenService_CreateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAPITokenService()
	ctx := context.Background()

	req := validCreateRequest()
	req.Name = "  "
	_, _, err := svc.Create(ctx, "user-1", req)
	require.ErrorIs(t, err, model.ErrInvalidInput)

	req = validCreateRequest()
	req.Scope = "ADMIN"
	_, _, err = svc.Create(ctx, "user-1", req)
	require.ErrorIs(t, err, model.ErrInvalidInput)

	req = validCreateRequest()
	req.ExpiresAt = "tomorrow"
	_, _, err = svc.Create(ctx, "user-1", req)
	require.ErrorIs(t, err, model.ErrInvalidInput)

	req = validCreateRequest()
	req.ExpiresAt = time.Now().Add(-time.Hour).Format(time.RFC3339)
	_, _, err = svc.Create(ctx, "user-1", req)
	require.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestAPITokenService_ValidateTracksUse(t *testing.T) {
	t.Parallel()

	svc, store := newTestAPITokenService()
	ctx := context.Background()

	created, raw, err := svc.Create(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	got, err := svc.Validate(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, model.ScopeRead, got.Scope)
	require.NotNil(t, store.tokens[created.ID].LastUsedAt)
}

func TestAPITokenService_ValidateUnknownSecret(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAPITokenService()

	_, err := svc.Validate(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	require.ErrorIs(t, err, model.ErrInvalidAPIToken)
}

func TestAPITokenService_ExpiredTokenRejectedButKept(t *testing.T) {
	t.Parallel()

	svc, store := newTestAPITokenService()
	ctx := context.Background()

	created, raw, err := svc.Create(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	expired := store.tokens[created.ID]
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	store.tokens[created.ID] = expired

	// Expiry surfaces as the same error as an unknown secret.
	_, err = svc.Validate(ctx, raw)
	require.ErrorIs(t, err, model.ErrInvalidAPIToken)

	// The row survives so the owner can list and revoke it.
	_, err = store.FindByID(ctx, created.ID)
	require.NoError(t, err)
}

func TestAPITokenService_ValidateAcceptsOlderPepper(t *testing.T) {
	t.Parallel()

	svc, store := newTestAPITokenService()
	ctx := context.Background()

	created, raw, err := svc.Create(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	rehashed, err := tokenhash.Hash(raw, tokenhash.AlgorithmSHA256, "pepper-old")
	require.NoError(t, err)
	token := store.tokens[created.ID]
	token.HashedSecret = rehashed
	store.tokens[created.ID] = token

	_, err = svc.Validate(ctx, raw)
	require.NoError(t, err)
}

func TestAPITokenService_RevokeAuthorization(t *testing.T) {
	t.Parallel()

	svc, store := newTestAPITokenService()
	ctx := context.Background()

	created, _, err := svc.Create(ctx, "user-1", validCreateRequest())
	require.NoError(t, err)

	stranger := model.User{ID: "user-2", Role: model.RoleUser}
	err = svc.Revoke(ctx, stranger, created.ID)
	require.ErrorIs(t, err, model.ErrForbidden)

	// Even an admin cannot revoke a token they do not own.
	admin := model.User{ID: "user-3", Role: model.RoleAdmin}
	err = svc.Revoke(ctx, admin, created.ID)
	require.ErrorIs(t, err, model.ErrForbidden)

	owner := model.User{ID: "user-1", Role: model.RoleUser}
	require.NoError(t, svc.Revoke(ctx, owner, created.ID))
	require.Empty(t, store.tokens)

	err = svc.Revoke(ctx, owner, created.ID)
	require.ErrorIs(t, err, model.ErrAPITokenNotFound)
}

func TestIsAPITokenSecret(t *testing.T) {
	t.Parallel()

	require.True(t, IsAPITokenSecret("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"))
	require.False(t, IsAPITokenSecret("0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF"))
	require.False(t, IsAPITokenSecret("tooshort"))
	require.False(t, IsAPITokenSecret("g123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"))
	require.False(t, IsAPITokenSecret(""))
}
