// Package jwt issues and verifies the HS256 session tokens that identify
// users to the access gate.
//
// A Service signs Claims with a shared key. Verify checks the signature,
// the algorithm and the temporal claims before returning the claims; any
// failure maps to one of the sentinel errors so callers can answer with a
// uniform 401.
//
//	svc, err := jwt.NewFromString(cfg.SigningKey, jwt.WithTTL(24*time.Hour))
//	token, err := svc.Issue(user.ID, user.Email)
//	claims, err := svc.Verify(token)
//
// BearerTokenExtractor reads the token from an "Authorization: Bearer"
// header.
package jwt
