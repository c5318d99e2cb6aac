// Package mongo manages the MongoDB connection backing the SafeIn document
// store: subscription records, payment event keys, and the tenant-scoped
// collections counted by trial limits.
//
// Configuration is environment-driven and connection setup retries through
// transient failures, so a pod starting before the database is reachable
// converges instead of crashing.
//
// # Usage
//
//	var cfg mongo.Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "safein")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	subs := subscription.NewMongoSubscriptionStore(db)
//	if err := subs.EnsureIndexes(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// Healthcheck returns a probe function for readiness endpoints.
package mongo
