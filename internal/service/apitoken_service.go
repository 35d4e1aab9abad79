package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"redirect-manager/internal/model"
	"redirect-manager/internal/tokenhash"
)

// apiTokenSecretLength is the hex length of a raw API token secret. The
// auth gateway relies on it to tell API tokens apart from JWTs.
const apiTokenSecretLength = 64

type apiTokenStore interface {
	Create(ctx context.Context, t model.APIToken) error
	FindByHashedSecret(ctx context.Context, hashedSecret string) (model.APIToken, bool, error)
	FindByID(ctx context.Context, id string) (model.APIToken, error)
	FindAllForUser(ctx context.Context, userID string) ([]model.APIToken, error)
	TouchLastUsed(ctx context.Context, id string, usedAt time.Time) error
	DeleteByID(ctx context.Context, id string) error
}

// APITokenService issues and validates long-lived machine tokens. The raw
// secret is returned exactly once at creation; only its peppered digest
// is stored.
type APITokenService struct {
	tokens apiTokenStore
	logger *slog.Logger

	peppers  []string
	hashAlgo string
}

func NewAPITokenService(tokens apiTokenStore, logger *slog.Logger, peppers []string, hashAlgo string) *APITokenService {
	return &APITokenService{
		tokens:   tokens,
		logger:   logger,
		peppers:  peppers,
		hashAlgo: hashAlgo,
	}
}

func (s *APITokenService) Create(ctx context.Context, userID string, req model.CreateAPITokenRequest) (model.APIToken, string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.APIToken{}, "", fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}
	if !model.ValidAPITokenScope(req.Scope) {
		return model.APIToken{}, "", fmt.Errorf("%w: scope must be READ or READ_WRITE", model.ErrInvalidInput)
	}

	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		return model.APIToken{}, "", fmt.Errorf("%w: expires_at must be RFC 3339", model.ErrInvalidInput)
	}
	if !expiresAt.After(time.Now()) {
		return model.APIToken{}, "", fmt.Errorf("%w: expires_at must be in the future", model.ErrInvalidInput)
	}

	raw, err := newAPITokenSecret()
	if err != nil {
		return model.APIToken{}, "", err
	}

	hashed, err := tokenhash.Hash(raw, s.hashAlgo, s.peppers[0])
	if err != nil {
		return model.APIToken{}, "", err
	}

	token := model.APIToken{
		ID:           uuid.NewString(),
		HashedSecret: hashed,
		UserID:       userID,
		Name:         name,
		Scope:        req.Scope,
		ExpiresAt:    expiresAt,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return model.APIToken{}, "", err
	}

	return token, raw, nil
}

// Validate resolves a raw API token secret to its stored record. Expired
// tokens are rejected but kept so their owner can still see and revoke
// them.
func (s *APITokenService) Validate(ctx context.Context, rawSecret string) (model.APIToken, error) {
	token, found, err := tokenhash.FindBySecret(ctx, rawSecret, s.hashAlgo, s.peppers, s.tokens.FindByHashedSecret)
	if err != nil {
		return model.APIToken{}, err
	}
	if !found {
		return model.APIToken{}, model.ErrInvalidAPIToken
	}

	if time.Now().After(token.ExpiresAt) {
		// An expired secret is indistinguishable from an unknown one at
		// the boundary; the row survives for listing and revocation.
		return model.APIToken{}, model.ErrInvalidAPIToken
	}

	if err := s.tokens.TouchLastUsed(ctx, token.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to record api token use", slog.String("token_id", token.ID), slog.Any("error", err))
	}

	return token, nil
}

func (s *APITokenService) List(ctx context.Context, userID string) ([]model.APIToken, error) {
	return s.tokens.FindAllForUser(ctx, userID)
}

// Revoke deletes a token. Only the owning user may do so; everyone
// else, admins included, gets ErrForbidden even when the token exists.
func (s *APITokenService) Revoke(ctx context.Context, caller model.User, tokenID string) error {
	token, err := s.tokens.FindByID(ctx, tokenID)
	if err != nil {
		return err
	}

	if token.UserID != caller.ID {
		return model.ErrForbidden
	}

	return s.tokens.DeleteByID(ctx, token.ID)
}

// IsAPITokenSecret reports whether a bearer credential has the shape of a
// raw API token secret: exactly 64 lowercase hex characters.
func IsAPITokenSecret(credential string) bool {
	if len(credential) != apiTokenSecretLength {
		return false
	}
	for _, c := range credential {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func newAPITokenSecret() (string, error) {
	buf := make([]byte, apiTokenSecretLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
