package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS applies to the management API only; the public resolution path is
// mounted outside it. Credentials are allowed because the refresh token
// travels in a cookie.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowCredentials := true
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		origins = []string{"*"}
		allowCredentials = false
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		MaxAge:           3600,
		AllowCredentials: allowCredentials,
	})

	return handler.Handler
}
