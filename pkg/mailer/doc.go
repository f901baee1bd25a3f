// Package mailer defines the transport-neutral outbound message and the
// [Sender] interface delivery adapters implement. The SMTP adapter lives in
// the smtp subpackage.
package mailer
