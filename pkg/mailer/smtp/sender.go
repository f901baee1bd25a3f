package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jmptrader/WebVella-ERP/pkg/mailer"
)

// Sender implements mailer.Sender over one SMTP relay.
// Each Send opens, uses and closes its own connection.
type Sender struct {
	cfg  Config
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// New creates a sender for cfg.
func New(cfg Config) *Sender {
	d := &net.Dialer{}
	return &Sender{cfg: cfg, dial: d.DialContext}
}

// Send implements mailer.Sender: connect, optional STARTTLS, optional AUTH,
// MAIL/RCPT/DATA, QUIT. The whole exchange is bounded by the configured timeout.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if s.cfg.Host == "" || s.cfg.Port < 1 || !s.cfg.Security.Valid() {
		return fmt.Errorf("%w: host %q port %d security %s", ErrInvalidConfig, s.cfg.Host, s.cfg.Port, s.cfg.Security)
	}
	if err := email.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
	defer cancel()

	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	// net/smtp has no context support; closing the socket unblocks it.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return errors.Join(ErrConnect, ctxErr(ctx, err))
	}
	defer c.Close()

	if err := s.session(c, email); err != nil {
		return ctxErr(ctx, err)
	}
	return nil
}

func (s *Sender) connect(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	conn, err := s.dial(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if s.cfg.implicitTLS() {
		tlsConn := tls.Client(conn, s.tlsConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, errors.Join(ErrConnect, err)
		}
		return tlsConn, nil
	}
	return conn, nil
}

func (s *Sender) session(c *smtp.Client, email *mailer.Email) error {
	if s.cfg.LocalName != "" {
		if err := c.Hello(s.cfg.LocalName); err != nil {
			return err
		}
	}

	if !s.cfg.implicitTLS() && s.cfg.Security != None {
		advertised, _ := c.Extension("STARTTLS")
		switch {
		case advertised:
			if err := c.StartTLS(s.tlsConfig()); err != nil {
				return err
			}
		case s.cfg.Security == StartTLS:
			return ErrStartTLSUnavailable
		}
	}

	if s.cfg.Username != "" {
		ok, mechanisms := c.Extension("AUTH")
		if !ok {
			return ErrAuthNotSupported
		}
		if err := c.Auth(chooseAuth(mechanisms, s.cfg)); err != nil {
			return err
		}
	}

	if err := c.Mail(envelopeAddress(email.From.Email)); err != nil {
		return err
	}
	for _, rcpt := range email.Recipients() {
		if err := c.Rcpt(envelopeAddress(rcpt)); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := buildMessage(email).WriteTo(w); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return c.Quit()
}

func (s *Sender) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.SkipVerify, //nolint:gosec // opt-in for self-signed relays
		MinVersion:         tls.VersionTLS12,
	}
}

// ctxErr reports the context error instead of the "use of closed connection"
// noise produced when the deadline closes the socket.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("smtp: %w: %w", ctx.Err(), err)
	}
	return err
}
