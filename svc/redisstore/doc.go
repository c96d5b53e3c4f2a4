// Package redisstore implements subscription.EventStore on Redis.
//
// Each processed webhook event is a key written with SET NX and an expiry
// longer than any provider retry window. The ledger can be combined with a
// Mongo or Postgres backend for users and subscriptions:
//
//	client, err := redis.Connect(ctx, redisCfg)
//	if err != nil {
//		return err
//	}
//	events := redisstore.New(client, redisstore.WithRetention(30*24*time.Hour))
//	dispatcher := subscription.NewDispatcher(events, users, subs, catalog)
package redisstore
