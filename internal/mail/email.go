package mail

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmptrader/WebVella-ERP/pkg/mailer"
	"github.com/jmptrader/WebVella-ERP/pkg/sanitizer"
)

// EmailStatus is the delivery state of an Email.
type EmailStatus int

const (
	StatusPending EmailStatus = iota
	StatusSent
	StatusAborted
)

var statusNames = [...]string{"pending", "sent", "aborted"}

func (s EmailStatus) String() string {
	if s >= StatusPending && s <= StatusAborted {
		return statusNames[s]
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// Terminal reports whether no automatic transition leaves s.
func (s EmailStatus) Terminal() bool {
	return s == StatusSent || s == StatusAborted
}

// ParseEmailStatus accepts the name or the numeric value.
func ParseEmailStatus(v string) (EmailStatus, bool) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return EmailStatus(n), n >= int(StatusPending) && n <= int(StatusAborted)
	}
	for i, name := range statusNames {
		if strings.EqualFold(name, v) {
			return EmailStatus(i), true
		}
	}
	return StatusPending, false
}

func (s EmailStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *EmailStatus) UnmarshalText(b []byte) error {
	v, ok := ParseEmailStatus(string(b))
	if !ok {
		return ErrInvalidStatus
	}
	*s = v
	return nil
}

// Priority orders the queue; higher values are sent first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

var priorityNames = [...]string{"low", "normal", "high"}

func (p Priority) String() string {
	if p >= PriorityLow && p <= PriorityHigh {
		return priorityNames[p]
	}
	return strconv.Itoa(int(p))
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts "low", "normal", "high" or a number.
func (p *Priority) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*p = Priority(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidPriority
	}
	for i, name := range priorityNames {
		if strings.EqualFold(name, s) {
			*p = Priority(i)
			return nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		*p = Priority(n)
		return nil
	}
	return ErrInvalidPriority
}

// Email is one outbound message and its delivery state.
type Email struct {
	ID             uuid.UUID   `json:"id"`
	ServiceID      uuid.UUID   `json:"service_id"`
	SenderName     string      `json:"sender_name"`
	SenderEmail    string      `json:"sender_email"`
	RecipientName  string      `json:"recipient_name"`
	RecipientEmail string      `json:"recipient_email"`
	ReplyToEmail   string      `json:"reply_to_email"`
	Subject        string      `json:"subject"`
	ContentText    string      `json:"content_text"`
	ContentHTML    string      `json:"content_html"`
	Priority       Priority    `json:"priority"`
	Status         EmailStatus `json:"status"`
	CreatedOn      time.Time   `json:"created_on"`
	ScheduledOn    *time.Time  `json:"scheduled_on"`
	SentOn         *time.Time  `json:"sent_on"`
	RetriesCount   int         `json:"retries_count"`
	ServerError    string      `json:"server_error,omitempty"`
	XSearch        string      `json:"-"`
}

// PrepareSearch recomputes XSearch. The HTML body contributes its text only.
func (e *Email) PrepareSearch() {
	e.XSearch = strings.Join([]string{
		e.SenderName,
		e.SenderEmail,
		e.RecipientEmail,
		e.RecipientName,
		e.Subject,
		e.ContentText,
		sanitizer.StripHTML(e.ContentHTML),
	}, " ")
}

// Due reports whether e is pending with a schedule strictly before now.
func (e *Email) Due(now time.Time) bool {
	return e.Status == StatusPending && e.ScheduledOn != nil && e.ScheduledOn.Before(now)
}

func (e *Email) message() *mailer.Email {
	msg := &mailer.Email{
		From:    mailer.Recipient(strings.TrimSpace(e.SenderName), e.SenderEmail),
		To:      []mailer.Address{mailer.Recipient(strings.TrimSpace(e.RecipientName), e.RecipientEmail)},
		Subject: e.Subject,
		HTML:    e.ContentHTML,
		Text:    e.ContentText,
	}
	if strings.TrimSpace(e.ReplyToEmail) != "" {
		msg.ReplyTo = mailer.Recipient("", e.ReplyToEmail)
	}
	return msg
}
