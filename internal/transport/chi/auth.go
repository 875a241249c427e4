package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequestMatcher selects the requests an auth middleware guards.
type RequestMatcher func(r *http.Request) bool

// OperatorRoutes matches requests that change process-wide state: preference
// updates and runtime settings. Display traffic (search, cafés, health, metrics)
// stays open.
func OperatorRoutes(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/settings/") {
		return r.Method != http.MethodGet
	}
	if r.URL.Path == "/preferences" {
		return r.Method != http.MethodGet
	}
	return false
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens on
// requests matched by guard. If apiKeys is empty, authentication is disabled.
// A nil guard protects everything.
func BearerAuthMiddleware(apiKeys []string, guard RequestMatcher) func(http.Handler) http.Handler {
	validKeys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys = append(validKeys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if guard != nil && !guard(r) {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					ErrorCodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			if !knownKey(validKeys, []byte(auth[len(bearerPrefix):])) {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func knownKey(keys [][]byte, token []byte) bool {
	found := false
	for _, k := range keys {
		if subtle.ConstantTimeCompare(k, token) == 1 {
			found = true
		}
	}
	return found
}
