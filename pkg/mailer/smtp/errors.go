package smtp

import "errors"

var (
	ErrInvalidConfig       = errors.New("smtp: invalid relay configuration")
	ErrConnect             = errors.New("smtp: failed to connect")
	ErrStartTLSUnavailable = errors.New("smtp: server does not support STARTTLS")
	ErrAuthNotSupported    = errors.New("smtp: server does not support authentication")
	ErrUnexpectedChallenge = errors.New("smtp: unexpected server challenge")
	ErrWrongHost           = errors.New("smtp: auth offered to wrong host name")
)
