package mail

import (
	"context"
	"time"

	"github.com/jmptrader/WebVella-ERP/pkg/mailer"
	"github.com/jmptrader/WebVella-ERP/pkg/mailer/smtp"
)

// TransportConfig holds settings shared by every relay.
type TransportConfig struct {
	SendTimeout time.Duration `env:"SMTP_SEND_TIMEOUT" envDefault:"30s"`
	// Certificate validation stays off unless SMTP_TLS_SKIP_VERIFY=false.
	TLSSkipVerify bool   `env:"SMTP_TLS_SKIP_VERIFY" envDefault:"true"`
	LocalName     string `env:"SMTP_LOCAL_NAME"`
}

// SMTPTransport sends through the relay described by each SmtpService.
type SMTPTransport struct {
	cfg TransportConfig
	// newSender is swapped in tests.
	newSender func(smtp.Config) mailer.Sender
}

// NewSMTPTransport creates an SMTP-backed Transport.
func NewSMTPTransport(cfg TransportConfig) *SMTPTransport {
	return &SMTPTransport{
		cfg:       cfg,
		newSender: func(c smtp.Config) mailer.Sender { return smtp.New(c) },
	}
}

// Send implements Transport.
func (t *SMTPTransport) Send(ctx context.Context, svc *SmtpService, msg *mailer.Email) error {
	return t.newSender(t.relayConfig(svc)).Send(ctx, msg)
}

func (t *SMTPTransport) relayConfig(svc *SmtpService) smtp.Config {
	return smtp.Config{
		Host:       svc.Server,
		Port:       svc.Port,
		Username:   svc.Username,
		Password:   svc.Password,
		Security:   smtp.Security(svc.ConnectionSecurity),
		LocalName:  t.cfg.LocalName,
		Timeout:    t.cfg.SendTimeout,
		SkipVerify: t.cfg.TLSSkipVerify,
	}
}
