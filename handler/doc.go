// Package handler provides typed JSON handlers for the API.
//
// A HandlerFunc receives a Context and a bound request value and returns a
// Response; Wrap turns it into an http.HandlerFunc:
//
//	type accessRequest struct{ Resource string }
//
//	func checkAccess(ctx handler.Context, req accessRequest) handler.Response {
//		return handler.JSON(map[string]string{"resource": req.Resource})
//	}
//
//	r.Get("/access/{resource}", handler.Wrap(checkAccess,
//		handler.WithBinders[handler.Context, accessRequest](handler.PathParam("resource", func(req *accessRequest, v string) {
//			req.Resource = v
//		})),
//	))
//
// JSON bodies use the {data, meta, error} envelope. Returning an HTTPError
// through JSONError maps its Code to the status and its Key to error.code.
package handler
