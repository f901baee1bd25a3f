package mail

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jmptrader/WebVella-ERP/pkg/mailer/smtp"
)

// ConnectionSecurity selects TLS handling for a service. Values match the
// numeric codes stored for existing services.
type ConnectionSecurity int

const (
	SecurityNone                  = ConnectionSecurity(smtp.None)
	SecurityAuto                  = ConnectionSecurity(smtp.Auto)
	SecuritySslOnConnect          = ConnectionSecurity(smtp.SSLOnConnect)
	SecurityStartTls              = ConnectionSecurity(smtp.StartTLS)
	SecurityStartTlsWhenAvailable = ConnectionSecurity(smtp.StartTLSWhenAvailable)
)

func (c ConnectionSecurity) String() string { return smtp.Security(c).String() }

// Valid reports whether c maps to a known mode.
func (c ConnectionSecurity) Valid() bool { return smtp.Security(c).Valid() }

// ParseConnectionSecurity accepts the numeric code or the mode name.
func ParseConnectionSecurity(v string) (ConnectionSecurity, bool) {
	s, ok := smtp.ParseSecurity(v)
	return ConnectionSecurity(s), ok
}

func (c ConnectionSecurity) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ConnectionSecurity) UnmarshalJSON(b []byte) error {
	raw, err := rawScalar(b)
	if err != nil {
		return err
	}
	v, ok := ParseConnectionSecurity(raw)
	if !ok {
		return ErrInvalidSecurity
	}
	*c = v
	return nil
}

// SecurityValue carries an unparsed connection_security so that a bad value
// is reported as a field error instead of a decoding failure.
type SecurityValue string

func (s *SecurityValue) UnmarshalJSON(b []byte) error {
	raw, err := rawScalar(b)
	if err != nil {
		return err
	}
	*s = SecurityValue(raw)
	return nil
}

func rawScalar(b []byte) (string, error) {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		return n.String(), nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", ErrInvalidSecurity
	}
	return s, nil
}

// SmtpService is the configuration of one outbound relay.
type SmtpService struct {
	ID                  uuid.UUID          `json:"id"`
	Name                string             `json:"name"`
	Server              string             `json:"server"`
	Port                int                `json:"port"`
	ConnectionSecurity  ConnectionSecurity `json:"connection_security"`
	Username            string             `json:"username,omitempty"`
	Password            string             `json:"-"`
	DefaultFromName     string             `json:"default_from_name,omitempty"`
	DefaultFromEmail    string             `json:"default_from_email"`
	DefaultReplyToEmail string             `json:"default_reply_to_email,omitempty"`
	MaxRetriesCount     int                `json:"max_retries_count"`
	RetryWaitMinutes    int                `json:"retry_wait_minutes"`
	IsDefault           bool               `json:"is_default"`
	IsEnabled           bool               `json:"is_enabled"`
}

// RetryWait is the fixed delay between attempts.
func (s *SmtpService) RetryWait() time.Duration {
	return time.Duration(s.RetryWaitMinutes) * time.Minute
}
