package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"redirect-manager/internal/model"
	"redirect-manager/pkg/apierror"
)

// uuidParam reads the {id} route parameter and rejects anything that is
// not a uuid before it reaches a typed uuid column, where Postgres would
// raise a cast error instead of reporting a missing row.
func uuidParam(r *http.Request, notFound error) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", notFound
	}
	return id, nil
}

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Invalid credentials"
	} else if errors.Is(err, model.ErrRefreshTokenReuse) {
		// Every session is already revoked at this point; the distinct code
		// tells legitimate clients to discard local state and log in again.
		status = http.StatusUnauthorized
		body.Code = "REFRESH_TOKEN_REUSE"
		body.Message = "Refresh token reuse detected"
	} else if errors.Is(err, model.ErrTokenExpired) {
		status = http.StatusUnauthorized
		body.Code = "TOKEN_EXPIRED"
		body.Message = "Token expired"
	} else if errors.Is(err, model.ErrTokenMalformed) || errors.Is(err, model.ErrInvalidAPIToken) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Invalid token"
	} else if errors.Is(err, model.ErrAPITokenNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "API token not found"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "Access denied"
	} else if errors.Is(err, model.ErrInsufficientScope) {
		status = http.StatusForbidden
		body.Code = "INSUFFICIENT_SCOPE"
		body.Message = "Token scope does not permit this operation"
	} else if errors.Is(err, model.ErrUserNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "User not found"
	} else if errors.Is(err, model.ErrUserAlreadyExists) {
		status = http.StatusConflict
		body.Code = "ALREADY_EXISTS"
		body.Message = "User already exists"
	} else if errors.Is(err, model.ErrRedirectNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Redirect not found"
	} else if errors.Is(err, model.ErrUniqueConstraint) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "A redirect with this source already exists"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
		body.Details = err.Error()
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}
