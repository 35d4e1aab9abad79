package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"redirect-manager/internal/model"
)

// accessScope is the scope claim stamped into every access token. A JWT
// without it is rejected even when the signature checks out.
const accessScope = "access"

type accessClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies stateless access tokens. Verification is
// three-way: valid tokens yield claims, expired tokens yield claims plus
// ErrTokenExpired so callers can still read who the token belonged to,
// and everything else is ErrTokenMalformed.
type JWTService struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), ttl: ttl}
}

func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

func (s *JWTService) Sign(userID string) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Scope: accessScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) Verify(tokenString string) (model.AuthClaims, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	switch {
	case err == nil && token.Valid:
		if claims.Scope != accessScope {
			return model.AuthClaims{}, model.ErrTokenMalformed
		}
		return toAuthClaims(claims), nil

	case errors.Is(err, jwt.ErrTokenExpired):
		// Signature already verified; only the exp check failed. Hand the
		// payload back so the caller can log or audit the subject.
		if claims.Scope != accessScope {
			return model.AuthClaims{}, model.ErrTokenMalformed
		}
		return toAuthClaims(claims), model.ErrTokenExpired

	default:
		return model.AuthClaims{}, model.ErrTokenMalformed
	}
}

func (s *JWTService) keyFunc(token *jwt.Token) (any, error) {
	return s.secret, nil
}

func toAuthClaims(claims accessClaims) model.AuthClaims {
	out := model.AuthClaims{
		UserID: claims.Subject,
		Scope:  claims.Scope,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		out.Expiry = claims.ExpiresAt.Unix()
	}
	return out
}
