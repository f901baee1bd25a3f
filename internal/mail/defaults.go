package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jmptrader/WebVella-ERP/pkg/validator"
)

// defaultEnforcer keeps exactly one default service. Writes go through it
// serialized by a process mutex and run inside one store transaction, so the
// demotion of other defaults commits together with the write.
type defaultEnforcer struct {
	mu       sync.Mutex
	services ServiceStore
	log      *slog.Logger
}

// write is the persistence step of a create or update. It receives the
// transactional store and the service as it will be saved.
type write func(ctx context.Context, tx ServiceStore, svc *SmtpService) error

// load returns the stored row (nil on create) and the service to be written.
// It runs inside the transaction, after the writer lock is held.
type load func(ctx context.Context, tx ServiceStore) (current, next *SmtpService, err error)

// save runs validation, the default-flag rules and persist in one transaction.
// It returns the saved service and the ids of other services whose default
// flag was cleared.
func (e *defaultEnforcer) save(ctx context.Context, in ServiceInput, read load, persist write) (*SmtpService, []uuid.UUID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		svc     *SmtpService
		demoted []uuid.UUID
	)
	err := e.services.WithinTx(ctx, func(ctx context.Context, tx ServiceStore) error {
		demoted = nil
		current, next, err := read(ctx, tx)
		if err != nil {
			return err
		}
		svc = next

		if err := validateService(ctx, tx, svc.ID, in); err != nil {
			return err
		}

		if current != nil && current.IsDefault && in.IsDefault != nil && !*in.IsDefault {
			return validator.NewError("is_default", MsgDefaultRequired)
		}

		if !svc.IsDefault {
			// The first service becomes the default so the invariant holds from the start.
			if _, err := tx.GetDefaultService(ctx); errors.Is(err, ErrNoDefaultService) {
				svc.IsDefault = true
			} else if err != nil {
				return err
			}
		}

		if svc.IsDefault {
			others, err := tx.ListServices(ctx)
			if err != nil {
				return err
			}
			for _, o := range others {
				if o.ID == svc.ID || !o.IsDefault {
					continue
				}
				o.IsDefault = false
				if err := tx.UpdateService(ctx, o); err != nil {
					return err
				}
				demoted = append(demoted, o.ID)
			}
		}

		return persist(ctx, tx, svc)
	})
	if err != nil {
		return nil, nil, err
	}

	for _, id := range demoted {
		e.log.InfoContext(ctx, "smtp service demoted from default",
			slog.String("service_id", id.String()),
			slog.String("new_default_id", svc.ID.String()))
	}
	return svc, demoted, nil
}

// remove deletes a non-default service.
func (e *defaultEnforcer) remove(ctx context.Context, id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.services.WithinTx(ctx, func(ctx context.Context, tx ServiceStore) error {
		svc, err := tx.GetService(ctx, id)
		if err != nil {
			return err
		}
		if svc.IsDefault {
			return validator.NewError("is_default", MsgDeleteDefault)
		}
		return tx.DeleteService(ctx, id)
	})
}
