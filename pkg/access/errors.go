package access

import "errors"

var (
	ErrNilTokenVerifier      = errors.New("access: token verifier is required")
	ErrNilSubscriptionReader = errors.New("access: subscription reader is required")
	ErrNilPlanCatalog        = errors.New("access: plan catalog is required")
)
