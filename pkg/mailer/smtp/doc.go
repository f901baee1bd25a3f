// Package smtp delivers [mailer.Email] messages through an SMTP relay.
//
// Messages are encoded with gomail (multipart/alternative when both bodies are
// present, quoted-printable UTF-8). The session runs on net/smtp with explicit
// control over TLS:
//
//	None                   plain TCP, STARTTLS never attempted
//	Auto                   implicit TLS on port 465, otherwise STARTTLS when advertised
//	SslOnConnect           implicit TLS
//	StartTls               STARTTLS required
//	StartTlsWhenAvailable  STARTTLS when advertised
//
// AUTH runs only when a username is configured, choosing CRAM-MD5, LOGIN or
// PLAIN from the server's advertised list.
package smtp
