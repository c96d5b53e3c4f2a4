package access

import "time"

// Config holds the gate settings.
type Config struct {
	// ExpiryGrace is how long an ACTIVE subscription keeps access after its
	// ExpiresAt when no renewal webhook arrived. Zero disables the check.
	ExpiryGrace time.Duration `env:"ACCESS_EXPIRY_GRACE" envDefault:"72h"`
}
