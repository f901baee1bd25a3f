package mailer

// Validate checks the fields every transport needs.
func (e *Email) Validate() error {
	if e.From.IsZero() {
		return ErrNoSender
	}
	if len(e.To) == 0 {
		return ErrNoRecipient
	}
	for _, to := range e.To {
		if to.IsZero() {
			return ErrNoRecipient
		}
	}
	if e.HTML == "" && e.Text == "" {
		return ErrNoContent
	}
	return nil
}

// Recipients returns the bare mailboxes of To.
func (e *Email) Recipients() []string {
	out := make([]string, 0, len(e.To))
	for _, to := range e.To {
		out = append(out, to.Email)
	}
	return out
}
