package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"redirect-manager/internal/model"
	"redirect-manager/internal/service"
	"redirect-manager/pkg/apierror"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type RedirectHandler struct {
	service *service.RedirectService
}

func NewRedirectHandler(service *service.RedirectService) *RedirectHandler {
	return &RedirectHandler{service: service}
}

func (h *RedirectHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.CreateRedirectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	redirect, err := h.service.Create(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, redirect, nil)
}

func (h *RedirectHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if opts.Cursor != nil || r.URL.Query().Get("first") != "" {
		redirects, total, hasNext, err := h.service.ListCursor(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}

		meta := &model.Meta{
			Total:   total,
			HasNext: hasNext,
			HasPrev: opts.Cursor != nil,
		}
		if hasNext && len(redirects) > 0 {
			next := strconv.FormatInt(redirects[len(redirects)-1].ID, 10)
			meta.NextCursor = &next
		}
		writeSuccess(w, http.StatusOK, redirects, meta)
		return
	}

	redirects, total, err := h.service.ListOffset(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	writeSuccess(w, http.StatusOK, redirects, &model.Meta{
		Page:       opts.Page,
		Limit:      opts.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    opts.Page < totalPages,
		HasPrev:    opts.Page > 1,
	})
}

func (h *RedirectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	redirect, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, redirect, nil)
}

func (h *RedirectHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.CreateRedirectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	redirect, err := h.service.Update(r.Context(), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, redirect, nil)
}

func (h *RedirectHandler) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.RedirectPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	redirect, err := h.service.PartialUpdate(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, redirect, nil)
}

func (h *RedirectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func (h *RedirectHandler) BatchCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.BatchCreateRedirectsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	ids, skipped, err := h.service.BulkCreate(r.Context(), payload.Redirects)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"created_ids": ids,
		"created":     len(ids),
		"skipped":     skipped,
	}, nil)
}

func (h *RedirectHandler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.BatchUpdateRedirectsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	results, err := h.service.BatchUpdate(r.Context(), payload.Updates)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, results, nil)
}

func (h *RedirectHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.BatchDeleteRedirectsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	deleted, err := h.service.BatchDelete(r.Context(), payload.IDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": deleted}, nil)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", model.ErrInvalidInput)
	}
	return id, nil
}

// parseListOptions reads pagination, sorting and bracketed filters like
// status_code[in]=301,302 or source[startswith]=/blog from the query
// string.
func parseListOptions(r *http.Request) (model.ListOptions, error) {
	q := r.URL.Query()

	opts := model.ListOptions{
		Page:      1,
		Limit:     defaultPageSize,
		First:     defaultPageSize,
		SortBy:    model.SortByID,
		SortOrder: model.SortAsc,
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return model.ListOptions{}, fmt.Errorf("%w: page must be a positive integer", model.ErrInvalidInput)
		}
		opts.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageSize {
			return model.ListOptions{}, fmt.Errorf("%w: limit must be between 1 and %d", model.ErrInvalidInput, maxPageSize)
		}
		opts.Limit = limit
	}
	if raw := q.Get("first"); raw != "" {
		first, err := strconv.Atoi(raw)
		if err != nil || first < 1 || first > maxPageSize {
			return model.ListOptions{}, fmt.Errorf("%w: first must be between 1 and %d", model.ErrInvalidInput, maxPageSize)
		}
		opts.First = first
	}
	if raw := q.Get("cursor"); raw != "" {
		cursor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || cursor < 0 {
			return model.ListOptions{}, fmt.Errorf("%w: cursor is not valid", model.ErrInvalidInput)
		}
		opts.Cursor = &cursor
	}
	if raw := q.Get("sort_by"); raw != "" {
		if !model.ValidSortField(raw) {
			return model.ListOptions{}, fmt.Errorf("%w: cannot sort by %q", model.ErrInvalidInput, raw)
		}
		opts.SortBy = raw
	}
	if raw := q.Get("sort_order"); raw != "" {
		if raw != model.SortAsc && raw != model.SortDesc {
			return model.ListOptions{}, fmt.Errorf("%w: sort_order must be asc or desc", model.ErrInvalidInput)
		}
		opts.SortOrder = raw
	}

	for key, values := range q {
		open := strings.Index(key, "[")
		if open < 0 || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}

		filter := model.Filter{
			Field:    key[:open],
			Operator: key[open+1 : len(key)-1],
			Values:   []string{values[0]},
		}
		if filter.Operator == model.OpIn || filter.Operator == model.OpNotIn {
			filter.Values = strings.Split(values[0], ",")
		}

		if !model.ValidFilter(filter) {
			return model.ListOptions{}, fmt.Errorf("%w: unsupported filter %s", model.ErrInvalidInput, key)
		}
		opts.Filters = append(opts.Filters, filter)
	}

	return opts, nil
}
