package subscription

import "time"

// Config holds the billing engine settings.
type Config struct {
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	AsaasWebhookToken   string `env:"ASAAS_WEBHOOK_TOKEN"`

	ProcessTimeout time.Duration `env:"BILLING_PROCESS_TIMEOUT" envDefault:"5s"`
	MaxBodyBytes   int64         `env:"BILLING_MAX_BODY_BYTES" envDefault:"1048576"`
	DefaultCycle   time.Duration `env:"BILLING_DEFAULT_CYCLE" envDefault:"720h"`
	SaveAttempts   int           `env:"BILLING_SAVE_ATTEMPTS" envDefault:"3"`

	OrphanFallback bool          `env:"BILLING_ORPHAN_FALLBACK" envDefault:"true"`
	OrphanWindow   time.Duration `env:"BILLING_ORPHAN_WINDOW" envDefault:"24h"`
}
