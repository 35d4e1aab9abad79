package handler

import (
	"encoding/json"
	"net/http"

	"redirect-manager/internal/middleware"
	"redirect-manager/internal/model"
	"redirect-manager/internal/service"
	"redirect-manager/pkg/apierror"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	user, err := h.service.Create(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, nil)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, users, nil)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, model.ErrUserNotFound)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	id, err := uuidParam(r, model.ErrUserNotFound)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	user, err := h.service.UpdateRole(r.Context(), principal.User, id, payload.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

// ChangePassword operates on the caller's own account.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	var payload model.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := h.service.ChangePassword(r.Context(), principal.User.ID, payload.Password, payload.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"changed": true}, nil)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	id, err := uuidParam(r, model.ErrUserNotFound)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), principal.User, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}
