// Package redis connects to the Redis instance backing short-lived state
// such as pending checkout sessions (see pkg/ttlstore).
//
// Connect retries until the server is reachable or the context expires;
// Healthcheck returns a probe function for readiness endpoints. The Config
// struct is populated from the environment via pkg/config.
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	sessions := ttlstore.NewRedisStore(client, "billing")
package redis
