// Package redis opens the optional go-redis client that backs the shared
// SMTP service directory cache.
//
//	REDIS_URL                 - redis:// or rediss:// URL; empty disables Redis
//	REDIS_POOL_SIZE           - maximum connections (default: 10)
//	REDIS_MIN_IDLE_CONNS      - idle connections kept open (default: 2)
//	REDIS_RETRY_ATTEMPTS      - connection attempts at startup (default: 3)
//	REDIS_RETRY_INTERVAL      - base wait between attempts (default: 2s)
package redis
