package mail

import "errors"

var (
	ErrEmailNotFound    = errors.New("mail: email not found")
	ErrServiceNotFound  = errors.New("mail: smtp service not found")
	ErrServiceDisabled  = errors.New("mail: smtp service is not enabled")
	ErrNoDefaultService = errors.New("mail: no default smtp service")
	ErrInvalidStatus    = errors.New("mail: invalid email status")
	ErrInvalidPriority  = errors.New("mail: invalid priority")
	ErrInvalidSecurity  = errors.New("mail: invalid connection security")
	ErrTransportPanic   = errors.New("mail: transport panicked")
	ErrPersistEmail     = errors.New("mail: failed to persist email")
	ErrListDue          = errors.New("mail: failed to list due emails")
	ErrResolveService   = errors.New("mail: failed to resolve smtp service")
)

// Messages recorded in Email.ServerError when a send is refused before the transport runs.
const (
	MsgServiceNotFound = "SMTP service not found"
	MsgServiceDisabled = "SMTP service is not enabled"
)

// Field messages for SMTP service writes.
const (
	MsgNameNotUnique    = "There is already existing service with that name. Name must be unique"
	MsgPortRange        = "Port must be an integer value between 1 and 65025"
	MsgFromEmailInvalid = "Default from email address is invalid"
	MsgReplyToInvalid   = "Default reply to email address is invalid"
	MsgRetriesRange     = "Number of retries on error must be an integer value between 1 and 10"
	MsgRetryWaitRange   = "Wait period between retries must be an integer value between 1 and 1440 minutes"
	MsgSecurityInvalid  = "Invalid connection security setting selected."
	MsgDefaultRequired  = "Forbidden. There should always be an active default service."
	MsgDeleteDefault    = "Forbidden. The default service cannot be deleted."
)

// Field messages for queue and test requests.
const (
	MsgRecipientRequired = "Recipient email is not specified"
	MsgRecipientInvalid  = "Recipient email is not a valid email address"
	MsgSubjectRequired   = "Subject is required"
	MsgContentRequired   = "Content is required"
)
