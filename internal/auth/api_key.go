package auth

import (
	"net/http"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// APIKeyHeader carries the static key for the management surface and for
// service-to-service sync calls.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey guards a route group with a shared static key. An unset key is
// a server misconfiguration and fails every request with 500.
func RequireAPIKey(expected string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				pkghttp.WriteInternalError(w, "API key authentication is not configured")
				return
			}

			presented := r.Header.Get(APIKeyHeader)
			if presented == "" || !SecretsEqual(presented, expected) {
				pkghttp.WriteUnauthorized(w, "Invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
