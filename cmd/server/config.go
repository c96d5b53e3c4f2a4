package main

import "time"

// Store drivers.
const (
	driverMongo    = "mongo"
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

// Event ledger backends. An empty value keeps the ledger in the main store.
const (
	ledgerStore = "store"
	ledgerRedis = "redis"
)

type appConfig struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Name string `env:"APP_NAME" envDefault:"subgate"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
	LogSource bool   `env:"LOG_SOURCE"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`
	EventLedger string `env:"EVENT_LEDGER" envDefault:"store"`
	// EventRetention is how long the redis ledger remembers an event.
	EventRetention time.Duration `env:"EVENT_RETENTION" envDefault:"720h"`

	PlansFile string `env:"PLANS_FILE" envDefault:"config/plans.yaml"`

	JWTSigningKey string `env:"JWT_SIGNING_KEY,required"`
	JWTIssuer     string `env:"JWT_ISSUER"`

	ReadinessTimeout time.Duration `env:"READINESS_TIMEOUT" envDefault:"2s"`
}
