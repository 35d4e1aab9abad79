package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"redirect-manager/internal/model"
)

type stubResolver struct {
	match    *model.RuleMatch
	err      error
	lastPath string
}

func (s *stubResolver) Resolve(_ context.Context, path string) (*model.RuleMatch, error) {
	s.lastPath = path
	return s.match, s.err
}

func fallbackMarker(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestResolveHandler_MatchRedirects(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{match: &model.RuleMatch{
		Source:      "/blog",
		Destination: "/news",
		StatusCode:  301,
	}}
	var fellBack bool
	h := NewResolveHandler(resolver, fallbackMarker(&fellBack))

	req := httptest.NewRequest("GET", "http://site.example/Blog", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "/news", rec.Header().Get("Location"))
	require.Equal(t, "/blog", resolver.lastPath, "incoming path must be lowercased before matching")
	require.False(t, fellBack)
}

func TestResolveHandler_ReappendsQueryString(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{match: &model.RuleMatch{
		Source:      "/blog",
		Destination: "/news",
		StatusCode:  302,
	}}
	var fellBack bool
	h := NewResolveHandler(resolver, fallbackMarker(&fellBack))

	req := httptest.NewRequest("GET", "http://site.example/blog?utm=x&b=2", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/news?utm=x&b=2", rec.Header().Get("Location"))

	// A destination that already carries a query gets the original one
	// appended, not duplicated.
	resolver.match.Destination = "/news?ref=rule"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "/news?ref=rule&utm=x&b=2", rec.Header().Get("Location"))
}

func TestResolveHandler_NoMatchFallsThrough(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{}
	var fellBack bool
	h := NewResolveHandler(resolver, fallbackMarker(&fellBack))

	req := httptest.NewRequest("GET", "http://site.example/unmatched", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, fellBack)
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestResolveHandler_ResolverErrorFallsThrough(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{err: errors.New("store down")}
	var fellBack bool
	h := NewResolveHandler(resolver, fallbackMarker(&fellBack))

	req := httptest.NewRequest("GET", "http://site.example/blog", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, fellBack)
}
