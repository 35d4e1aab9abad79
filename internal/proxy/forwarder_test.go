package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"redirect-manager/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForwarder_InjectsCustomHeadersAndRewritesHost(t *testing.T) {
	t.Parallel()

	var gotHost, gotCustom string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		gotCustom = r.Header.Get("X-Origin-Key")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("upstream body"))
	}))
	defer upstream.Close()

	forwarder, err := NewForwarder(upstream.URL, 5*time.Second,
		config.DefaultHopByHopHeaders, map[string]string{"X-Origin-Key": "sekret"}, discardLogger())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "http://public.example/some/path", nil)
	req.Host = "public.example"
	rec := httptest.NewRecorder()
	forwarder.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "upstream body", rec.Body.String())
	require.Equal(t, "sekret", gotCustom)

	upstreamHost := upstream.Listener.Addr().String()
	require.Equal(t, upstreamHost, gotHost)
}

func TestForwarder_StripsConfiguredRequestHeaders(t *testing.T) {
	t.Parallel()

	var sawProxyAuth, sawKeepAlive bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawProxyAuth = r.Header.Get("Proxy-Authorization") != ""
		sawKeepAlive = r.Header.Get("Keep-Alive") != ""
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	forwarder, err := NewForwarder(upstream.URL, 5*time.Second,
		config.DefaultHopByHopHeaders, nil, discardLogger())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "http://public.example/", nil)
	req.Header.Set("Proxy-Authorization", "Basic abc")
	req.Header.Set("Keep-Alive", "timeout=5")
	rec := httptest.NewRecorder()
	forwarder.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, sawProxyAuth)
	require.False(t, sawKeepAlive)
}

func TestForwarder_StripsResponseHeaders(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Keep-Alive", "timeout=5")
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	forwarder, err := NewForwarder(upstream.URL, 5*time.Second,
		config.DefaultHopByHopHeaders, nil, discardLogger())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "http://public.example/", nil)
	rec := httptest.NewRecorder()
	forwarder.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Keep-Alive"))
	require.Equal(t, "yes", rec.Header().Get("X-Upstream"))
}

func TestForwarder_UnreachableUpstreamIs502(t *testing.T) {
	t.Parallel()

	// A server that is already closed leaves a port nothing listens on.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := upstream.URL
	upstream.Close()

	forwarder, err := NewForwarder(target, 2*time.Second,
		config.DefaultHopByHopHeaders, nil, discardLogger())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "http://public.example/", nil)
	rec := httptest.NewRecorder()
	forwarder.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestForwarder_TimeoutBoundsSlowUpstream(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	forwarder, err := NewForwarder(upstream.URL, 100*time.Millisecond,
		config.DefaultHopByHopHeaders, nil, discardLogger())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "http://public.example/", nil)
	rec := httptest.NewRecorder()

	started := time.Now()
	forwarder.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Less(t, time.Since(started), 2*time.Second)
}

func TestNewForwarder_RejectsBadTarget(t *testing.T) {
	t.Parallel()

	_, err := NewForwarder("not a url", time.Second, nil, nil, discardLogger())
	require.Error(t, err)

	_, err = NewForwarder("", time.Second, nil, nil, discardLogger())
	require.Error(t, err)
}
