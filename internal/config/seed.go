package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jmptrader/WebVella-ERP/internal/mail"
	"github.com/jmptrader/WebVella-ERP/pkg/logger"
)

var (
	ErrReadSeed  = errors.New("config: failed to read smtp services file")
	ErrParseSeed = errors.New("config: failed to parse smtp services file")
	ErrSeed      = errors.New("config: failed to seed smtp services")
)

// SeedFile is the layout of SMTP_SERVICES_FILE.
//
//	smtp_services:
//	  - name: primary
//	    server: smtp.example.com
//	    port: 587
//	    connection_security: StartTls
//	    username: mailer
//	    password: ${SMTP_PRIMARY_PASSWORD}
//	    default_from_email: no-reply@example.com
type SeedFile struct {
	Services []mail.ServiceInput `yaml:"smtp_services"`
}

// ServiceWriter is the part of the mail manager used for seeding.
type ServiceWriter interface {
	ListServices(ctx context.Context) ([]*mail.SmtpService, error)
	CreateService(ctx context.Context, in mail.ServiceInput) (*mail.SmtpService, error)
}

// LoadSeedFile reads path, expanding ${VAR} references first.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrReadSeed, err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a seed document, expanding ${VAR} references first.
func ParseSeed(data []byte) (*SeedFile, error) {
	var f SeedFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, errors.Join(ErrParseSeed, err)
	}
	return &f, nil
}

// Seed creates every service in f whose name is not taken yet. Creation goes
// through the validated write path, so the first service becomes the default.
// It returns how many services were created; failures are joined and do not
// stop the remaining entries.
func Seed(ctx context.Context, w ServiceWriter, f *SeedFile, log *slog.Logger) (int, error) {
	if log == nil {
		log = logger.NewNope()
	}
	if f == nil || len(f.Services) == 0 {
		return 0, nil
	}

	existing, err := w.ListServices(ctx)
	if err != nil {
		return 0, errors.Join(ErrSeed, err)
	}
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s.Name] = struct{}{}
	}

	var (
		created int
		errs    []error
	)
	for i, in := range f.Services {
		name := ""
		if in.Name != nil {
			name = *in.Name
		}
		if _, ok := taken[name]; ok && name != "" {
			log.DebugContext(ctx, "smtp service already exists", slog.String("name", name))
			continue
		}

		svc, err := w.CreateService(ctx, in)
		if err != nil {
			errs = append(errs, fmt.Errorf("smtp_services[%d] %q: %w", i, name, err))
			continue
		}
		taken[svc.Name] = struct{}{}
		created++
		log.InfoContext(ctx, "smtp service seeded",
			slog.String("service_id", svc.ID.String()),
			slog.String("name", svc.Name),
			slog.Bool("is_default", svc.IsDefault),
		)
	}

	if len(errs) > 0 {
		return created, errors.Join(append([]error{ErrSeed}, errs...)...)
	}
	return created, nil
}
