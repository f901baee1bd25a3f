// Package db wraps [github.com/jackc/pgx/v5/pgxpool] with the pieces the mail
// engine needs from PostgreSQL: a retrying pool constructor, a readiness probe,
// goose migrations from an [io/fs.FS], and transaction helpers.
//
// # Configuration
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL (required)
//	DATABASE_AUTO_MIGRATE       - Apply embedded migrations on startup (default: true)
//	DATABASE_MIGRATIONS_TABLE   - goose version table (default: mail_schema_migrations)
//	DATABASE_MAX_OPEN_CONNS     - Maximum open connections (default: 15)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - Pool health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//
// # Transactions
//
// [WithTx] commits when fn returns nil and rolls back otherwise. [LockTx]
// serializes writers that share a key for the lifetime of the transaction:
//
//	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		if err := db.LockTx(ctx, tx, "smtp_services"); err != nil {
//			return err
//		}
//		// ...
//		return nil
//	})
package db
