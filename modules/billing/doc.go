// Package billing mounts the payment provider webhook endpoints:
//
//	POST /stripe
//	POST /asaas
//
// Only providers passed to NewService are mounted.
package billing
