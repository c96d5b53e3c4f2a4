package jwt

import (
	"net/http"
	"strings"
)

// BearerTokenExtractor extracts the token from an "Authorization: Bearer
// <token>" header. ErrMissingToken means no credentials were sent at all;
// ErrInvalidToken means the header is present but malformed.
func BearerTokenExtractor(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}
