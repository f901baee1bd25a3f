package mailer

import (
	"net/mail"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Name  string
	Email string
}

// Recipient builds an Address; an empty name yields a bare mailbox.
func Recipient(name, email string) Address {
	return Address{Name: name, Email: email}
}

// IsZero reports whether no mailbox is set.
func (a Address) IsZero() bool {
	return a.Email == ""
}

// String formats the address for a header, quoting or encoding the display
// name when needed.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// Email represents a fully-prepared email message ready for sending.
type Email struct {
	Headers map[string]string // Custom headers
	From    Address           // Envelope and header sender
	ReplyTo Address           // Optional Reply-To
	To      []Address         // Recipients (at least one required)
	Subject string
	HTML    string // HTML body content
	Text    string // Plain text alternative
}
