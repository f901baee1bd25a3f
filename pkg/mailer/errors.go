package mailer

import "errors"

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("mailer: email must have at least one recipient")

	// ErrNoSender indicates the From address is empty.
	ErrNoSender = errors.New("mailer: email must have a sender")

	// ErrNoContent indicates neither an HTML nor a text body was provided.
	ErrNoContent = errors.New("mailer: email must have content")
)
