// Package redis connects the service to Redis.
//
// Sessions, session epochs and pending OAuth states all live in Redis when the
// service runs with more than one replica. Connect retries the initial ping so
// that a cold Redis container does not fail the whole process, and Healthcheck
// exposes the connection state to the status endpoint.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	client, err := redis.Connect(ctx, cfg)
package redis
