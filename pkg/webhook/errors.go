package webhook

import "errors"

var (
	ErrEmptyPayload    = errors.New("webhook payload is empty")
	ErrPayloadTooLarge = errors.New("webhook payload exceeds size limit")
	ErrReadPayload     = errors.New("failed to read webhook payload")
	ErrMissingToken    = errors.New("webhook authentication token is missing")
	ErrInvalidToken    = errors.New("webhook authentication token is invalid")
)
