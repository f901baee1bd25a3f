package smtp

import (
	"bytes"
	"fmt"
	"net/smtp"
	"strings"
)

// chooseAuth picks the strongest mechanism the server advertised:
// CRAM-MD5, then LOGIN when PLAIN is absent, then PLAIN.
//
// Credentials are sent whenever a username is configured, including over a
// plaintext session; the relay's connection security setting decides that.
func chooseAuth(mechanisms string, cfg Config) smtp.Auth {
	mechs := strings.Fields(strings.ToUpper(mechanisms))
	has := func(m string) bool {
		for _, v := range mechs {
			if v == m {
				return true
			}
		}
		return false
	}

	switch {
	case has("CRAM-MD5"):
		return smtp.CRAMMD5Auth(cfg.Username, cfg.Password)
	case has("LOGIN") && !has("PLAIN"):
		return &loginAuth{username: cfg.Username, password: cfg.Password, host: cfg.Host}
	default:
		return &plainAuth{username: cfg.Username, password: cfg.Password, host: cfg.Host}
	}
}

// plainAuth is RFC 4616 PLAIN. Unlike smtp.PlainAuth it does not refuse
// non-TLS sessions to remote hosts.
type plainAuth struct {
	identity string
	username string
	password string
	host     string
}

func (a *plainAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if server.Name != a.host {
		return "", nil, fmt.Errorf("%w %q", ErrWrongHost, server.Name)
	}
	resp := []byte(a.identity + "\x00" + a.username + "\x00" + a.password)
	return "PLAIN", resp, nil
}

func (a *plainAuth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return nil, ErrUnexpectedChallenge
	}
	return nil, nil
}

// loginAuth implements the LOGIN mechanism, which net/smtp does not ship.
type loginAuth struct {
	username string
	password string
	host     string
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if server.Name != a.host {
		return "", nil, fmt.Errorf("%w %q", ErrWrongHost, server.Name)
	}
	return "LOGIN", nil, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch {
	case bytes.EqualFold(fromServer, []byte("Username:")):
		return []byte(a.username), nil
	case bytes.EqualFold(fromServer, []byte("Password:")):
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedChallenge, fromServer)
	}
}
