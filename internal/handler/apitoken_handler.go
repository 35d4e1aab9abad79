package handler

import (
	"encoding/json"
	"net/http"

	"redirect-manager/internal/middleware"
	"redirect-manager/internal/model"
	"redirect-manager/internal/service"
	"redirect-manager/pkg/apierror"
)

type APITokenHandler struct {
	service *service.APITokenService
}

func NewAPITokenHandler(service *service.APITokenService) *APITokenHandler {
	return &APITokenHandler{service: service}
}

// createdAPIToken is the only response that ever carries the raw secret.
type createdAPIToken struct {
	model.APIToken
	Token string `json:"token"`
}

func (h *APITokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	var payload model.CreateAPITokenRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	token, raw, err := h.service.Create(r.Context(), principal.User.ID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, createdAPIToken{APIToken: token, Token: raw}, nil)
}

func (h *APITokenHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	tokens, err := h.service.List(r.Context(), principal.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens, nil)
}

func (h *APITokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	id, err := uuidParam(r, model.ErrAPITokenNotFound)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Revoke(r.Context(), principal.User, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"revoked": true}, nil)
}
