package handler

import (
	"context"
	"net/http"
	"strings"

	"redirect-manager/internal/model"
)

type ruleResolver interface {
	Resolve(ctx context.Context, path string) (*model.RuleMatch, error)
}

// ResolveHandler is the public catch-all. A matching rule answers with
// its redirect; everything else streams through the fallback proxy.
type ResolveHandler struct {
	resolver ruleResolver
	fallback http.Handler
}

func NewResolveHandler(resolver ruleResolver, fallback http.Handler) *ResolveHandler {
	return &ResolveHandler{resolver: resolver, fallback: fallback}
}

func (h *ResolveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Matching is case-insensitive: the incoming path is lowercased, rule
	// sources are compared lowercased in the store.
	path := strings.ToLower(r.URL.Path)

	match, err := h.resolver.Resolve(r.Context(), path)
	if err != nil {
		// A broken rule store must not take the public site down; fall
		// through to the origin.
		h.fallback.ServeHTTP(w, r)
		return
	}
	if match == nil {
		h.fallback.ServeHTTP(w, r)
		return
	}

	destination := match.Destination
	if query := r.URL.RawQuery; query != "" {
		if strings.Contains(destination, "?") {
			destination += "&" + query
		} else {
			destination += "?" + query
		}
	}

	http.Redirect(w, r, destination, match.StatusCode)
}
