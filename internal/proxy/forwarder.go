package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

// Forwarder streams unmatched public requests to the fallback origin.
// Hop-by-hop headers are stripped in both directions, configured custom
// headers are injected into the upstream request, and the whole exchange
// is bounded by a timeout. An upstream failure before any response bytes
// is a 502; a failure mid-stream aborts the client connection since the
// status line is already gone.
type Forwarder struct {
	proxy   *httputil.ReverseProxy
	timeout time.Duration
}

func NewForwarder(target string, timeout time.Duration, hopByHop []string, customHeaders map[string]string, logger *slog.Logger) (*Forwarder, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q", target)
	}

	strip := make(map[string]struct{}, len(hopByHop))
	for _, name := range hopByHop {
		strip[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:          200,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	p := httputil.NewSingleHostReverseProxy(u)
	p.Transport = baseTransport
	p.FlushInterval = 100 * time.Millisecond

	origDirector := p.Director
	p.Director = func(req *http.Request) {
		origDirector(req)

		// The origin must see itself as the requested host or virtual
		// hosting at the fallback site breaks.
		req.Host = u.Host

		stripHeaders(req.Header, strip)
		for name, value := range customHeaders {
			req.Header.Set(name, value)
		}
	}

	p.ModifyResponse = func(resp *http.Response) error {
		stripHeaders(resp.Header, strip)
		return nil
	}

	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy upstream failure",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}

	return &Forwarder{proxy: p, timeout: timeout}, nil
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), f.timeout)
	defer cancel()

	f.proxy.ServeHTTP(w, r.WithContext(ctx))
}

// stripHeaders removes the configured hop-by-hop set plus anything the
// Connection header names.
func stripHeaders(h http.Header, strip map[string]struct{}) {
	for _, token := range h.Values("Connection") {
		for _, name := range strings.Split(token, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for name := range strip {
		h.Del(name)
	}
}
