package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"redirect-manager/internal/middleware"
	"redirect-manager/internal/model"
	"redirect-manager/internal/service"
	"redirect-manager/pkg/apierror"
)

// refreshCookieName is the cookie carrying the raw refresh secret. It is
// scoped to the auth endpoints so browsers never send it anywhere else.
const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/api/v1/auth"
)

type AuthHandler struct {
	service    *service.AuthService
	jwt        *service.JWTService
	refreshTTL time.Duration
}

func NewAuthHandler(service *service.AuthService, jwt *service.JWTService, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{service: service, jwt: jwt, refreshTTL: refreshTTL}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	access, rawRefresh, _, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, rawRefresh)
	writeSuccess(w, http.StatusOK, h.tokenResponse(access), nil)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, model.ErrInvalidCredentials)
		return
	}

	access, rawRefresh, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.clearRefreshCookie(w)
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, rawRefresh)
	writeSuccess(w, http.StatusOK, h.tokenResponse(access), nil)
}

// Logout always succeeds from the client's point of view, even when the
// cookie is missing or names a session that is already gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LogoutRequest
	_ = json.NewDecoder(r.Body).Decode(&payload)

	rawRefresh := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		rawRefresh = cookie.Value
	}

	if err := h.service.Logout(r.Context(), rawRefresh, payload.AllDevices); err != nil {
		writeError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	writeSuccess(w, http.StatusOK, principal.User, nil)
}

func (h *AuthHandler) tokenResponse(access string) model.TokenResponse {
	return model.TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwt.TTL().Seconds()),
	}
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
