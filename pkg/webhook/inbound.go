package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes caps provider payloads at 1 MiB.
const DefaultMaxBodyBytes int64 = 1 << 20

// ReadBody reads the whole request body, refusing more than limit bytes.
// A non-positive limit means DefaultMaxBodyBytes.
func ReadBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrPayloadTooLarge
		}
		return nil, errors.Join(ErrReadPayload, err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyPayload
	}
	return body, nil
}

// VerifyToken compares a shared secret sent by the provider with the
// configured one in constant time.
func VerifyToken(expected, got string) error {
	if got == "" {
		return ErrMissingToken
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
