package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which services to mount in the account module.
// Each service is optional and will only be mounted if provided.
type RouterOptions struct {
	// Plans serves the public plan catalog.
	Plans Mountable
	// Access serves the caller's subscription, entitlements and access checks.
	Access Mountable
}

// Router creates the account API router.
//
// Example:
//
//	svc := account.NewService(gate, catalog, handler.NewErrorHandler(log))
//
//	r := chi.NewRouter()
//	r.Mount("/api/v1", account.Router(account.RouterOptions{
//	    Plans:  svc.Plans(),
//	    Access: svc,
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	if opts.Plans != nil {
		r.Mount("/plans", opts.Plans.Handle())
	}
	if opts.Access != nil {
		r.Mount("/", opts.Access.Handle())
	}

	return r
}
