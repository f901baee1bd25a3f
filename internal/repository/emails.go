package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jmptrader/WebVella-ERP/internal/mail"
	"github.com/jmptrader/WebVella-ERP/pkg/db"
)

// InsertHook runs inside the transaction that inserts an email. An error
// rolls the insert back.
type InsertHook func(ctx context.Context, tx pgx.Tx, e *mail.Email) error

// EmailsOption configures Emails.
type EmailsOption func(*Emails)

// WithInsertHook registers fn to run in the insert transaction of every new email.
func WithInsertHook(fn InsertHook) EmailsOption {
	return func(r *Emails) {
		r.onInsert = fn
	}
}

// Emails implements mail.EmailStore.
type Emails struct {
	db       dbtx
	onInsert InsertHook
}

// NewEmails creates an email store on db, usually a *pgxpool.Pool.
func NewEmails(db dbtx, opts ...EmailsOption) *Emails {
	r := &Emails{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const emailColumns = `id, service_id, sender_name, sender_email, recipient_name, recipient_email,
	reply_to_email, subject, content_text, content_html, priority, status, created_on,
	scheduled_on, sent_on, retries_count, COALESCE(server_error, ''), x_search`

func scanEmail(row pgx.Row) (*mail.Email, error) {
	var (
		e                mail.Email
		priority, status int16
	)
	err := row.Scan(
		&e.ID, &e.ServiceID, &e.SenderName, &e.SenderEmail, &e.RecipientName, &e.RecipientEmail,
		&e.ReplyToEmail, &e.Subject, &e.ContentText, &e.ContentHTML, &priority, &status, &e.CreatedOn,
		&e.ScheduledOn, &e.SentOn, &e.RetriesCount, &e.ServerError, &e.XSearch,
	)
	if err != nil {
		return nil, err
	}
	e.Priority = mail.Priority(priority)
	e.Status = mail.EmailStatus(status)
	e.CreatedOn = e.CreatedOn.UTC()
	e.ScheduledOn = utc(e.ScheduledOn)
	e.SentOn = utc(e.SentOn)
	return &e, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (r *Emails) GetEmail(ctx context.Context, id uuid.UUID) (*mail.Email, error) {
	e, err := scanEmail(r.db.QueryRow(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, mail.ErrEmailNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	return e, nil
}

func (r *Emails) CreateEmail(ctx context.Context, e *mail.Email) error {
	if r.onInsert == nil {
		return insertEmail(ctx, r.db, e)
	}
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertEmail(ctx, tx, e); err != nil {
			return err
		}
		return r.onInsert(ctx, tx, e)
	})
}

func insertEmail(ctx context.Context, q dbtx, e *mail.Email) error {
	_, err := q.Exec(ctx, `
		INSERT INTO emails (id, service_id, sender_name, sender_email, recipient_name, recipient_email,
			reply_to_email, subject, content_text, content_html, priority, status, created_on,
			scheduled_on, sent_on, retries_count, server_error, x_search)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NULLIF($17, ''), $18)
	`, e.ID, e.ServiceID, e.SenderName, e.SenderEmail, e.RecipientName, e.RecipientEmail,
		e.ReplyToEmail, e.Subject, e.ContentText, e.ContentHTML, int16(e.Priority), int16(e.Status), e.CreatedOn,
		e.ScheduledOn, e.SentOn, e.RetriesCount, e.ServerError, e.XSearch)
	if err != nil {
		return errors.Join(ErrQuery, err)
	}
	return nil
}

func (r *Emails) UpdateEmail(ctx context.Context, e *mail.Email) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE emails SET
			service_id = $2, sender_name = $3, sender_email = $4, recipient_name = $5,
			recipient_email = $6, reply_to_email = $7, subject = $8, content_text = $9,
			content_html = $10, priority = $11, status = $12, scheduled_on = $13, sent_on = $14,
			retries_count = $15, server_error = NULLIF($16, ''), x_search = $17
		WHERE id = $1
	`, e.ID, e.ServiceID, e.SenderName, e.SenderEmail, e.RecipientName,
		e.RecipientEmail, e.ReplyToEmail, e.Subject, e.ContentText,
		e.ContentHTML, int16(e.Priority), int16(e.Status), e.ScheduledOn, e.SentOn,
		e.RetriesCount, e.ServerError, e.XSearch)
	if err != nil {
		return errors.Join(ErrQuery, err)
	}
	if tag.RowsAffected() == 0 {
		return mail.ErrEmailNotFound
	}
	return nil
}

// ListEmails builds the WHERE clause from the filter fields that are set.
func (r *Emails) ListEmails(ctx context.Context, f mail.EmailFilter) ([]*mail.Email, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Status != nil {
		where = append(where, "status = "+arg(int16(*f.Status)))
	}
	if f.DueBefore != nil {
		where = append(where, "scheduled_on IS NOT NULL", "scheduled_on < "+arg(*f.DueBefore))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, `x_search ILIKE '%' || `+arg(escapeLike(s))+`::text || '%'`)
	}

	var q strings.Builder
	q.WriteString(`SELECT ` + emailColumns + ` FROM emails`)
	if len(where) > 0 {
		q.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	switch f.Order {
	case mail.OrderDue:
		q.WriteString(" ORDER BY priority DESC, scheduled_on ASC")
	default:
		q.WriteString(" ORDER BY created_on DESC")
	}
	if f.Limit > 0 {
		q.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.Offset > 0 {
		q.WriteString(" OFFSET " + arg(f.Offset))
	}

	rows, err := r.db.Query(ctx, q.String(), args...)
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*mail.Email, error) {
		return scanEmail(row)
	})
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
