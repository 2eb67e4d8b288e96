package auth

import (
	"net/http"
	"strings"

	"github.com/wholesalehub/platform/pkg/httpx"
)

// Middleware validates the Bearer token and injects the merchant ID
// into the request context. Requests without a valid token proceed
// unauthenticated; gated routes reject them downstream.
func Middleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			merchantID, err := tokens.Parse(token)
			if err != nil {
				httpx.Error(w, http.StatusUnauthorized, "Invalid or expired token", "INVALID_TOKEN")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithMerchantID(r.Context(), merchantID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return h[len(prefix):], true
}
