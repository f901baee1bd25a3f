package smtp

import (
	"strconv"
	"strings"
	"time"
)

// Security selects how the connection to the relay is protected.
type Security int

const (
	// None never negotiates TLS.
	None Security = iota
	// Auto uses implicit TLS on port 465 and opportunistic STARTTLS elsewhere.
	Auto
	// SSLOnConnect wraps the connection in TLS before the greeting.
	SSLOnConnect
	// StartTLS requires the STARTTLS extension and fails without it.
	StartTLS
	// StartTLSWhenAvailable upgrades only when STARTTLS is advertised.
	StartTLSWhenAvailable
)

var securityNames = [...]string{"None", "Auto", "SslOnConnect", "StartTls", "StartTlsWhenAvailable"}

func (s Security) String() string {
	if s.Valid() {
		return securityNames[s]
	}
	return "Security(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is one of the declared modes.
func (s Security) Valid() bool {
	return s >= None && s <= StartTLSWhenAvailable
}

// ParseSecurity accepts either the numeric value or the case-insensitive name.
func ParseSecurity(v string) (Security, bool) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		s := Security(n)
		return s, s.Valid()
	}
	for i, name := range securityNames {
		if strings.EqualFold(name, v) {
			return Security(i), true
		}
	}
	return None, false
}

// DefaultTimeout bounds one delivery attempt when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config describes one SMTP relay.
type Config struct {
	Host      string
	Port      int
	Username  string // AUTH is attempted only when set
	Password  string
	Security  Security
	LocalName string // EHLO name; net/smtp uses "localhost" when empty
	// Timeout bounds dial, handshake and the whole session.
	Timeout time.Duration
	// SkipVerify disables certificate validation for relays with self-signed certificates.
	SkipVerify bool
}

func (c Config) implicitTLS() bool {
	return c.Security == SSLOnConnect || (c.Security == Auto && c.Port == 465)
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}
