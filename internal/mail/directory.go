package mail

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jmptrader/WebVella-ERP/pkg/cache"
	"github.com/jmptrader/WebVella-ERP/pkg/logger"
)

// StoreDirectory resolves services straight from the store.
type StoreDirectory struct {
	services ServiceStore
}

// NewStoreDirectory creates an uncached directory.
func NewStoreDirectory(services ServiceStore) *StoreDirectory {
	return &StoreDirectory{services: services}
}

// Resolve implements ServiceDirectory.
func (d *StoreDirectory) Resolve(ctx context.Context, id uuid.UUID) (*SmtpService, error) {
	svc, err := d.services.GetService(ctx, id)
	if errors.Is(err, ErrServiceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrResolveService, err)
	}
	return svc, nil
}

// ServiceRecord is the cache representation of a service. Unlike the API
// JSON of SmtpService it keeps the password.
type ServiceRecord struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Server              string    `json:"server"`
	Port                int       `json:"port"`
	ConnectionSecurity  int       `json:"connection_security"`
	Username            string    `json:"username"`
	Password            string    `json:"password"`
	DefaultFromName     string    `json:"default_from_name"`
	DefaultFromEmail    string    `json:"default_from_email"`
	DefaultReplyToEmail string    `json:"default_reply_to_email"`
	MaxRetriesCount     int       `json:"max_retries_count"`
	RetryWaitMinutes    int       `json:"retry_wait_minutes"`
	IsDefault           bool      `json:"is_default"`
	IsEnabled           bool      `json:"is_enabled"`
}

func recordOf(s *SmtpService) ServiceRecord {
	return ServiceRecord{
		ID:                  s.ID,
		Name:                s.Name,
		Server:              s.Server,
		Port:                s.Port,
		ConnectionSecurity:  int(s.ConnectionSecurity),
		Username:            s.Username,
		Password:            s.Password,
		DefaultFromName:     s.DefaultFromName,
		DefaultFromEmail:    s.DefaultFromEmail,
		DefaultReplyToEmail: s.DefaultReplyToEmail,
		MaxRetriesCount:     s.MaxRetriesCount,
		RetryWaitMinutes:    s.RetryWaitMinutes,
		IsDefault:           s.IsDefault,
		IsEnabled:           s.IsEnabled,
	}
}

func (r ServiceRecord) service() *SmtpService {
	return &SmtpService{
		ID:                  r.ID,
		Name:                r.Name,
		Server:              r.Server,
		Port:                r.Port,
		ConnectionSecurity:  ConnectionSecurity(r.ConnectionSecurity),
		Username:            r.Username,
		Password:            r.Password,
		DefaultFromName:     r.DefaultFromName,
		DefaultFromEmail:    r.DefaultFromEmail,
		DefaultReplyToEmail: r.DefaultReplyToEmail,
		MaxRetriesCount:     r.MaxRetriesCount,
		RetryWaitMinutes:    r.RetryWaitMinutes,
		IsDefault:           r.IsDefault,
		IsEnabled:           r.IsEnabled,
	}
}

// CachedDirectory fronts a ServiceDirectory with a read-through cache.
// A drain resolves the same few services for every email in a batch.
// Missing services are not cached.
type CachedDirectory struct {
	next  ServiceDirectory
	cache *cache.ReadThrough[ServiceRecord]
	log   *slog.Logger
}

// NewCachedDirectory wraps next with c. Entries live for ttl.
func NewCachedDirectory(next ServiceDirectory, c cache.Cache[ServiceRecord], ttl time.Duration, log *slog.Logger) *CachedDirectory {
	if log == nil {
		log = logger.NewNope()
	}
	return &CachedDirectory{next: next, cache: cache.NewReadThrough(c, ttl), log: log}
}

var errAbsent = errors.New("absent")

// Resolve implements ServiceDirectory.
func (d *CachedDirectory) Resolve(ctx context.Context, id uuid.UUID) (*SmtpService, error) {
	rec, err := d.cache.Get(ctx, id.String(), func(ctx context.Context) (ServiceRecord, error) {
		svc, err := d.next.Resolve(ctx, id)
		if err != nil {
			return ServiceRecord{}, err
		}
		if svc == nil {
			return ServiceRecord{}, errAbsent
		}
		return recordOf(svc), nil
	})
	if errors.Is(err, errAbsent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.service(), nil
}

// Invalidate drops cached entries for ids. Failures are logged; entries
// then age out with their TTL.
func (d *CachedDirectory) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	if err := d.cache.Forget(ctx, keys...); err != nil {
		d.log.WarnContext(ctx, "failed to invalidate smtp service cache", slog.String("error", err.Error()))
	}
}

// Refresh drops every cached service. Loads already in flight are not stored.
func (d *CachedDirectory) Refresh(ctx context.Context) {
	if err := d.cache.Reset(ctx); err != nil {
		d.log.WarnContext(ctx, "failed to reset smtp service cache", slog.String("error", err.Error()))
	}
}

// Refresher is implemented by directories that can drop all cached entries.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Invalidator is implemented by directories that cache.
type Invalidator interface {
	Invalidate(ctx context.Context, ids ...uuid.UUID)
}
