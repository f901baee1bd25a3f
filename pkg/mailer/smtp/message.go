package smtp

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/idna"
	"gopkg.in/gomail.v2"

	"github.com/jmptrader/WebVella-ERP/pkg/mailer"
)

func buildMessage(email *mailer.Email) *gomail.Message {
	m := gomail.NewMessage()

	m.SetAddressHeader("From", email.From.Email, email.From.Name)

	to := make([]string, 0, len(email.To))
	for _, addr := range email.To {
		to = append(to, m.FormatAddress(addr.Email, addr.Name))
	}
	m.SetHeader("To", to...)

	if !email.ReplyTo.IsZero() {
		m.SetAddressHeader("Reply-To", email.ReplyTo.Email, email.ReplyTo.Name)
	}
	m.SetHeader("Subject", email.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(email.From.Email)))
	for k, v := range email.Headers {
		m.SetHeader(k, v)
	}

	switch {
	case email.Text != "" && email.HTML != "":
		m.SetBody("text/plain", email.Text)
		m.AddAlternative("text/html", email.HTML)
	case email.HTML != "":
		m.SetBody("text/html", email.HTML)
	default:
		m.SetBody("text/plain", email.Text)
	}

	return m
}

// envelopeAddress converts an internationalized domain to its ASCII form for
// MAIL FROM and RCPT TO. Addresses that fail conversion are passed through and
// left for the server to reject.
func envelopeAddress(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return addr
	}
	ascii, err := idna.Lookup.ToASCII(addr[at+1:])
	if err != nil {
		return addr
	}
	return addr[:at+1] + ascii
}

func domainOf(addr string) string {
	if at := strings.LastIndexByte(addr, '@'); at >= 0 && at < len(addr)-1 {
		return envelopeAddress(addr)[at+1:]
	}
	return "localhost"
}
