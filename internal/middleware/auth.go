package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"redirect-manager/internal/model"
	"redirect-manager/internal/service"
)

type accessVerifier interface {
	Verify(tokenString string) (model.AuthClaims, error)
}

type apiTokenValidator interface {
	Validate(ctx context.Context, rawSecret string) (model.APIToken, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id string) (model.User, error)
}

// Principal is the authenticated caller of a management request: the
// resolved user plus the scope their credential grants. Access tokens
// carry the implicit session scope; API tokens carry their stored scope.
type Principal struct {
	User  model.User
	Scope string
}

type contextKey string

const principalContextKey contextKey = "principal"

type AuthMiddleware struct {
	access    accessVerifier
	apiTokens apiTokenValidator
	users     userLoader
}

func NewAuthMiddleware(access accessVerifier, apiTokens apiTokenValidator, users userLoader) *AuthMiddleware {
	return &AuthMiddleware{access: access, apiTokens: apiTokens, users: users}
}

// RequireAuth authenticates the bearer credential. Its shape decides the
// verification path: three dot-separated segments is a JWT, 64 hex
// characters is an API token secret, anything else is rejected outright.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}
		credential := strings.TrimSpace(header[7:])

		var principal Principal
		switch {
		case strings.Count(credential, ".") == 2:
			claims, err := m.access.Verify(credential)
			if errors.Is(err, model.ErrTokenExpired) {
				writeAuthError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "access token expired")
				return
			}
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
				return
			}

			user, err := m.users.FindByID(r.Context(), claims.UserID)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
				return
			}
			principal = Principal{User: user, Scope: model.ScopeSession}

		case service.IsAPITokenSecret(credential):
			// Expired API tokens surface the same invalid-token error as
			// unknown ones; only JWTs get the distinct expired code.
			token, err := m.apiTokens.Validate(r.Context(), credential)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid api token")
				return
			}

			user, err := m.users.FindByID(r.Context(), token.UserID)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid api token")
				return
			}
			principal = Principal{User: user, Scope: token.Scope}

		default:
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unrecognized credential")
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScope gates mutating requests. Session credentials and
// READ_WRITE tokens pass everything; READ tokens pass only safe methods.
func (m *AuthMiddleware) RequireScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		switch principal.Scope {
		case model.ScopeSession, model.ScopeReadWrite:
			next.ServeHTTP(w, r)
			return
		case model.ScopeRead:
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
		}

		writeAuthError(w, http.StatusForbidden, "INSUFFICIENT_SCOPE", "token scope does not permit this operation")
	})
}

// RequireSession restricts a subtree to interactive sessions. API tokens
// cannot manage accounts or mint further credentials, whatever their
// scope.
func (m *AuthMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		if principal.Scope != model.ScopeSession {
			writeAuthError(w, http.StatusForbidden, "INSUFFICIENT_SCOPE", "a session credential is required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[strings.ToUpper(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if _, exists := roleSet[strings.ToUpper(principal.User.Role)]; !exists {
				writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(Principal)
	return principal, ok
}

func writeAuthError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
