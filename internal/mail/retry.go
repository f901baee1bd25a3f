package mail

import "time"

// scheduleRetry records a failed attempt. The email is re-queued after the
// service's fixed wait until the attempt count reaches its cap, then aborted.
func scheduleRetry(email *Email, svc *SmtpService, err error, now time.Time) {
	email.ServerError = err.Error()
	email.SentOn = nil
	email.RetriesCount++

	if email.RetriesCount >= svc.MaxRetriesCount {
		email.Status = StatusAborted
		email.ScheduledOn = nil
		return
	}

	next := now.UTC().Add(svc.RetryWait())
	email.Status = StatusPending
	email.ScheduledOn = &next
}

func markSent(email *Email, now time.Time) {
	sentOn := now.UTC()
	email.Status = StatusSent
	email.SentOn = &sentOn
	email.ScheduledOn = nil
	email.ServerError = ""
}

// abort ends delivery without a transport attempt.
func abort(email *Email, reason string) {
	email.Status = StatusAborted
	email.ServerError = reason
	email.ScheduledOn = nil
	email.SentOn = nil
}
