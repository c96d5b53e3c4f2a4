// Package redis connects the go-redis client used by the Redis event ledger.
package redis
