package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jmptrader/WebVella-ERP/internal/mail"
	"github.com/jmptrader/WebVella-ERP/pkg/db"
)

// defaultLockKey serializes default-flag changes across processes.
const defaultLockKey = "mail.smtp_services.default"

// Services implements mail.ServiceStore.
type Services struct {
	db dbtx
}

// NewServices creates a service store on db, usually a *pgxpool.Pool.
func NewServices(db dbtx) *Services {
	return &Services{db: db}
}

const serviceColumns = `id, name, server, port, connection_security, username, password,
	default_from_name, default_from_email, default_reply_to_email, max_retries_count,
	retry_wait_minutes, is_default, is_enabled`

func scanService(row pgx.Row) (*mail.SmtpService, error) {
	var (
		s        mail.SmtpService
		security int16
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Server, &s.Port, &security, &s.Username, &s.Password,
		&s.DefaultFromName, &s.DefaultFromEmail, &s.DefaultReplyToEmail, &s.MaxRetriesCount,
		&s.RetryWaitMinutes, &s.IsDefault, &s.IsEnabled,
	)
	if err != nil {
		return nil, err
	}
	s.ConnectionSecurity = mail.ConnectionSecurity(security)
	return &s, nil
}

func (r *Services) one(ctx context.Context, notFound error, sql string, args ...any) (*mail.SmtpService, error) {
	s, err := scanService(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	return s, nil
}

func (r *Services) many(ctx context.Context, sql string, args ...any) ([]*mail.SmtpService, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*mail.SmtpService, error) {
		return scanService(row)
	})
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	return out, nil
}

func (r *Services) GetService(ctx context.Context, id uuid.UUID) (*mail.SmtpService, error) {
	return r.one(ctx, mail.ErrServiceNotFound, `SELECT `+serviceColumns+` FROM smtp_services WHERE id = $1`, id)
}

func (r *Services) GetDefaultService(ctx context.Context) (*mail.SmtpService, error) {
	return r.one(ctx, mail.ErrNoDefaultService, `SELECT `+serviceColumns+` FROM smtp_services WHERE is_default LIMIT 1`)
}

func (r *Services) FindServicesByName(ctx context.Context, name string) ([]*mail.SmtpService, error) {
	return r.many(ctx, `SELECT `+serviceColumns+` FROM smtp_services WHERE name = $1`, name)
}

func (r *Services) ListServices(ctx context.Context) ([]*mail.SmtpService, error) {
	return r.many(ctx, `SELECT `+serviceColumns+` FROM smtp_services ORDER BY name`)
}

func (r *Services) CreateService(ctx context.Context, s *mail.SmtpService) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO smtp_services (id, name, server, port, connection_security, username, password,
			default_from_name, default_from_email, default_reply_to_email, max_retries_count,
			retry_wait_minutes, is_default, is_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, s.ID, s.Name, s.Server, s.Port, int16(s.ConnectionSecurity), s.Username, s.Password,
		s.DefaultFromName, s.DefaultFromEmail, s.DefaultReplyToEmail, s.MaxRetriesCount,
		s.RetryWaitMinutes, s.IsDefault, s.IsEnabled)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *Services) UpdateService(ctx context.Context, s *mail.SmtpService) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE smtp_services SET
			name = $2, server = $3, port = $4, connection_security = $5, username = $6,
			password = $7, default_from_name = $8, default_from_email = $9,
			default_reply_to_email = $10, max_retries_count = $11, retry_wait_minutes = $12,
			is_default = $13, is_enabled = $14, updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.Name, s.Server, s.Port, int16(s.ConnectionSecurity), s.Username,
		s.Password, s.DefaultFromName, s.DefaultFromEmail,
		s.DefaultReplyToEmail, s.MaxRetriesCount, s.RetryWaitMinutes,
		s.IsDefault, s.IsEnabled)
	if err != nil {
		return mapConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return mail.ErrServiceNotFound
	}
	return nil
}

func (r *Services) DeleteService(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM smtp_services WHERE id = $1`, id)
	if err != nil {
		return errors.Join(ErrQuery, err)
	}
	if tag.RowsAffected() == 0 {
		return mail.ErrServiceNotFound
	}
	return nil
}

// WithinTx runs fn in a transaction holding the default-flag advisory lock.
// Nested calls open a savepoint.
func (r *Services) WithinTx(ctx context.Context, fn func(ctx context.Context, tx mail.ServiceStore) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := db.LockTx(ctx, tx, defaultLockKey); err != nil {
			return err
		}
		return fn(ctx, NewServices(tx))
	})
}
