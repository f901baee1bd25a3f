package mail

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jmptrader/WebVella-ERP/pkg/validator"
)

// ServiceInput is a create or partial update of an SmtpService. Nil fields
// are absent from the write and keep their current (or default) value.
type ServiceInput struct {
	Name                *string        `json:"name,omitempty" yaml:"name"`
	Server              *string        `json:"server,omitempty" yaml:"server"`
	Port                *int           `json:"port,omitempty" yaml:"port"`
	ConnectionSecurity  *SecurityValue `json:"connection_security,omitempty" yaml:"connection_security"`
	Username            *string        `json:"username,omitempty" yaml:"username"`
	Password            *string        `json:"password,omitempty" yaml:"password"`
	DefaultFromName     *string        `json:"default_from_name,omitempty" yaml:"default_from_name"`
	DefaultFromEmail    *string        `json:"default_from_email,omitempty" yaml:"default_from_email"`
	DefaultReplyToEmail *string        `json:"default_reply_to_email,omitempty" yaml:"default_reply_to_email"`
	MaxRetriesCount     *int           `json:"max_retries_count,omitempty" yaml:"max_retries_count"`
	RetryWaitMinutes    *int           `json:"retry_wait_minutes,omitempty" yaml:"retry_wait_minutes"`
	IsDefault           *bool          `json:"is_default,omitempty" yaml:"is_default"`
	IsEnabled           *bool          `json:"is_enabled,omitempty" yaml:"is_enabled"`
}

// Defaults applied to fields a create leaves out.
const (
	DefaultPort             = 25
	DefaultMaxRetriesCount  = 3
	DefaultRetryWaitMinutes = 60
	DefaultSecurity         = SecurityAuto
)

// serviceWrite is the context a field validator sees.
type serviceWrite struct {
	id    uuid.UUID // zero on create
	in    ServiceInput
	store ServiceStore
}

// fieldValidator checks one field of a write. It runs only when the field is
// present and returns the rules to evaluate.
type fieldValidator struct {
	field   string
	present func(in ServiceInput) bool
	rules   func(ctx context.Context, w serviceWrite) ([]validator.Rule, error)
}

// serviceValidators run in order against every service write.
var serviceValidators = []fieldValidator{
	{
		field:   "name",
		present: func(in ServiceInput) bool { return in.Name != nil },
		rules: func(ctx context.Context, w serviceWrite) ([]validator.Rule, error) {
			name := *w.in.Name
			if strings.TrimSpace(name) == "" {
				return []validator.Rule{validator.RequiredString("name", name)}, nil
			}
			existing, err := w.store.FindServicesByName(ctx, name)
			if err != nil {
				return nil, err
			}
			taken := false
			for _, s := range existing {
				if s.ID != w.id {
					taken = true
					break
				}
			}
			return []validator.Rule{validator.Custom("name", func() bool { return !taken }, MsgNameNotUnique)}, nil
		},
	},
	{
		field:   "server",
		present: func(in ServiceInput) bool { return in.Server != nil },
		rules: func(_ context.Context, w serviceWrite) ([]validator.Rule, error) {
			return []validator.Rule{validator.RequiredString("server", *w.in.Server)}, nil
		},
	},
	{
		field:   "port",
		present: func(in ServiceInput) bool { return in.Port != nil },
		rules: func(_ context.Context, w serviceWrite) ([]validator.Rule, error) {
			return []validator.Rule{validator.RangeNum("port", *w.in.Port, 1, 65025).WithMessage(MsgPortRange)}, nil
		},
	},
	{
		field:   "default_from_email",
		present: func(in ServiceInput) bool { return in.DefaultFromEmail != nil },
		rules: func(_ context.Context, w serviceWrite) ([]validator.Rule, error) {
			v := *w.in.DefaultFromEmail
			if strings.TrimSpace(v) == "" {
				return []validator.Rule{validator.RequiredString("default_from_email", v)}, nil
			}
			return []validator.Rule{validator.Email("default_from_email", v).WithMessage(MsgFromEmailInvalid)}, nil
		},
	},
	{
		field:   "default_reply_to_email",
		present: func(in ServiceInput) bool { return in.DefaultReplyToEmail != nil && *in.DefaultReplyToEmail != "" },
		rules: func(_ context.Context, w serviceWrite) ([]validator.Rule, error) {
			return []validator.Rule{validator.Email("default_reply_to_email", *w.in.DefaultReplyToEmail).WithMessage(MsgReplyToInvalid)}, nil
		},
	},
	{
		field:   "max_retries_count",
		present: func(in ServiceInput) bool { return in.MaxRetriesCount != nil },
		rules: func(_ context.Context, w serviceWrite) ([]validator.Rule, error) {
			return []validator.Rule{validator.RangeNum("max_retries_count", *w.in.MaxRetriesCount, 1, 10).WithMessage(MsgRetriesRange)}, nil
		},
	},
	{
		field:   "retry_wait_minutes",
		present: func(in ServiceInput) bool { return in.RetryWaitMinutes != nil },
		rules: func(_ context.Context, w serviceWrite) ([]validator.Rule, error) {
			return []validator.Rule{validator.RangeNum("retry_wait_minutes", *w.in.RetryWaitMinutes, 1, 1440).WithMessage(MsgRetryWaitRange)}, nil
		},
	},
	{
		field:   "connection_security",
		present: func(in ServiceInput) bool { return in.ConnectionSecurity != nil },
		rules: func(_ context.Context, w serviceWrite) ([]validator.Rule, error) {
			_, ok := ParseConnectionSecurity(string(*w.in.ConnectionSecurity))
			return []validator.Rule{validator.Custom("connection_security", func() bool { return ok }, MsgSecurityInvalid)}, nil
		},
	},
}

// validateService runs the field pipeline. It returns validator.ValidationErrors
// for rule failures and the store error if a lookup fails.
func validateService(ctx context.Context, store ServiceStore, id uuid.UUID, in ServiceInput) error {
	w := serviceWrite{id: id, in: in, store: store}
	var rules []validator.Rule
	for _, fv := range serviceValidators {
		if !fv.present(in) {
			continue
		}
		r, err := fv.rules(ctx, w)
		if err != nil {
			return err
		}
		rules = append(rules, r...)
	}
	return validator.Apply(rules...)
}

// withCreateDefaults fills fields a create may omit and marks the required
// ones present so the pipeline reports them.
func (in ServiceInput) withCreateDefaults() ServiceInput {
	empty := ""
	if in.Name == nil {
		in.Name = &empty
	}
	if in.Server == nil {
		in.Server = &empty
	}
	if in.DefaultFromEmail == nil {
		in.DefaultFromEmail = &empty
	}
	if in.Port == nil {
		in.Port = ptr(DefaultPort)
	}
	if in.ConnectionSecurity == nil {
		v := SecurityValue(DefaultSecurity.String())
		in.ConnectionSecurity = &v
	}
	if in.MaxRetriesCount == nil {
		in.MaxRetriesCount = ptr(DefaultMaxRetriesCount)
	}
	if in.RetryWaitMinutes == nil {
		in.RetryWaitMinutes = ptr(DefaultRetryWaitMinutes)
	}
	if in.IsEnabled == nil {
		in.IsEnabled = ptr(true)
	}
	return in
}

// apply copies present fields onto svc. The input must have passed validation.
func (in ServiceInput) apply(svc *SmtpService) {
	set(&svc.Name, in.Name)
	set(&svc.Server, in.Server)
	set(&svc.Port, in.Port)
	set(&svc.Username, in.Username)
	set(&svc.Password, in.Password)
	set(&svc.DefaultFromName, in.DefaultFromName)
	set(&svc.DefaultFromEmail, in.DefaultFromEmail)
	set(&svc.DefaultReplyToEmail, in.DefaultReplyToEmail)
	set(&svc.MaxRetriesCount, in.MaxRetriesCount)
	set(&svc.RetryWaitMinutes, in.RetryWaitMinutes)
	set(&svc.IsDefault, in.IsDefault)
	set(&svc.IsEnabled, in.IsEnabled)
	if in.ConnectionSecurity != nil {
		if cs, ok := ParseConnectionSecurity(string(*in.ConnectionSecurity)); ok {
			svc.ConnectionSecurity = cs
		}
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func ptr[T any](v T) *T { return &v }
