package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"redirect-manager/internal/model"
	"redirect-manager/internal/tokenhash"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
}

type refreshTokenStore interface {
	Create(ctx context.Context, t model.RefreshToken) error
	FindByHashedSecret(ctx context.Context, hashedSecret string) (model.RefreshToken, bool, error)
	Rotate(ctx context.Context, oldID string, replacement model.RefreshToken) error
	DeleteByID(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// AuthService owns the password login flow and the refresh token
// lifecycle. Refresh tokens rotate on every use; a replayed secret hits
// its tombstone, which revokes every session the owner has.
type AuthService struct {
	users         userStore
	refreshTokens refreshTokenStore
	jwt           *JWTService

	peppers    []string
	hashAlgo   string
	refreshTTL time.Duration
}

func NewAuthService(users userStore, refreshTokens refreshTokenStore, jwt *JWTService, peppers []string, hashAlgo string, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:         users,
		refreshTokens: refreshTokens,
		jwt:           jwt,
		peppers:       peppers,
		hashAlgo:      hashAlgo,
		refreshTTL:    refreshTTL,
	}
}

// Login verifies a password and opens a session. Unknown usernames and
// wrong passwords return the identical error.
func (s *AuthService) Login(ctx context.Context, username string, password string) (string, string, model.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, model.ErrUserNotFound) {
		return "", "", model.User{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return "", "", model.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", model.User{}, model.ErrInvalidCredentials
	}

	access, err := s.jwt.Sign(user.ID)
	if err != nil {
		return "", "", model.User{}, err
	}

	rawRefresh, err := s.openSession(ctx, user.ID)
	if err != nil {
		return "", "", model.User{}, err
	}

	return access, rawRefresh, user, nil
}

// Refresh exchanges a refresh secret for a fresh access token and a
// rotated refresh secret. Presenting a tombstoned secret is treated as
// theft: every session of that user is deleted.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (string, string, error) {
	token, found, err := tokenhash.FindBySecret(ctx, rawRefresh, s.hashAlgo, s.peppers, s.refreshTokens.FindByHashedSecret)
	if err != nil {
		return "", "", err
	}
	if !found {
		return "", "", model.ErrInvalidCredentials
	}

	if token.Revoked {
		if err := s.refreshTokens.DeleteAllForUser(ctx, token.UserID); err != nil {
			return "", "", err
		}
		return "", "", model.ErrRefreshTokenReuse
	}

	if time.Now().After(token.ExpiresAt) {
		if err := s.refreshTokens.DeleteByID(ctx, token.ID); err != nil {
			return "", "", err
		}
		return "", "", model.ErrInvalidCredentials
	}

	access, err := s.jwt.Sign(token.UserID)
	if err != nil {
		return "", "", err
	}

	newRaw, err := newRefreshSecret()
	if err != nil {
		return "", "", err
	}

	hashed, err := tokenhash.Hash(newRaw, s.hashAlgo, s.peppers[0])
	if err != nil {
		return "", "", err
	}

	err = s.refreshTokens.Rotate(ctx, token.ID, model.RefreshToken{
		ID:           uuid.NewString(),
		HashedSecret: hashed,
		UserID:       token.UserID,
		ExpiresAt:    time.Now().Add(s.refreshTTL),
		CreatedAt:    time.Now().UTC(),
	})
	if errors.Is(err, model.ErrRefreshTokenReuse) {
		// Lost a race against another rotation of the same secret.
		if delErr := s.refreshTokens.DeleteAllForUser(ctx, token.UserID); delErr != nil {
			return "", "", delErr
		}
		return "", "", model.ErrRefreshTokenReuse
	}
	if err != nil {
		return "", "", err
	}

	return access, newRaw, nil
}

// Logout closes the session behind a refresh secret. Unknown or already
// deleted secrets are a silent no-op so logout never fails for the
// client.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string, allDevices bool) error {
	if rawRefresh == "" {
		return nil
	}

	token, found, err := tokenhash.FindBySecret(ctx, rawRefresh, s.hashAlgo, s.peppers, s.refreshTokens.FindByHashedSecret)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	if allDevices {
		return s.refreshTokens.DeleteAllForUser(ctx, token.UserID)
	}
	return s.refreshTokens.DeleteByID(ctx, token.ID)
}

func (s *AuthService) openSession(ctx context.Context, userID string) (string, error) {
	raw, err := newRefreshSecret()
	if err != nil {
		return "", err
	}

	hashed, err := tokenhash.Hash(raw, s.hashAlgo, s.peppers[0])
	if err != nil {
		return "", err
	}

	err = s.refreshTokens.Create(ctx, model.RefreshToken{
		ID:           uuid.NewString(),
		HashedSecret: hashed,
		UserID:       userID,
		ExpiresAt:    time.Now().Add(s.refreshTTL),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

func newRefreshSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
