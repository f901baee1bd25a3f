package validator

import (
	"net/mail"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

// RFC 5321 section 4.5.3.1 limits.
const (
	maxLocalPartLen = 64
	maxDomainLen    = 255
	maxPathLen      = 254
)

var domainProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(true),
)

// IsEmail reports whether s is a single bare address (no display name, no
// surrounding whitespace) whose local part and domain fit the SMTP length
// limits and whose domain, possibly internationalized, converts to ASCII.
func IsEmail(s string) bool {
	if s == "" || s != strings.TrimSpace(s) {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}

	at := strings.LastIndexByte(s, '@')
	local, domain := s[:at], s[at+1:]
	if local == "" || len(local) > maxLocalPartLen {
		return false
	}

	ascii, err := domainProfile.ToASCII(norm.NFC.String(domain))
	if err != nil || len(ascii) > maxDomainLen || !strings.Contains(ascii, ".") {
		return false
	}

	return len(local)+1+len(ascii) <= maxPathLen
}
