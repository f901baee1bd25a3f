// Package health serves liveness and readiness probes.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "postgres": db.Healthcheck(pool),
//	    "jobs":     job.Healthcheck(jobs),
//	    "redis":    health.Optional(redis.Healthcheck(client)),
//	}))
//
// Readiness runs every check in parallel under one timeout and answers 503
// when any required check fails. Checks wrapped in [Optional] report
// "degraded" and keep the service ready. Responses are plain text unless the
// client asks for JSON with an Accept header or ?format=json.
package health
