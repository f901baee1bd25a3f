package httpapi

import (
	"net/http"
	"strconv"

	"github.com/jmptrader/WebVella-ERP/internal/mail"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// sendResponse is the body of POST /emails/{id}/send.
type sendResponse struct {
	Email *mail.Email `json:"email"`
	Sent  bool        `json:"sent"`
	Error string      `json:"error,omitempty"`
}

func (a *api) queueEmail(w http.ResponseWriter, r *http.Request) error {
	var req mail.QueueRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	email, err := a.svc.QueueEmail(r.Context(), req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, email)
	return nil
}

func (a *api) listEmails(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	filter := mail.EmailFilter{
		Search: q.Get("q"),
		Order:  mail.OrderNewest,
		Limit:  defaultPageSize,
	}

	if v := q.Get("status"); v != "" {
		status, ok := mail.ParseEmailStatus(v)
		if !ok {
			return errBadRequest("invalid status", mail.ErrInvalidStatus)
		}
		filter.Status = &status
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return errBadRequest("invalid limit", err)
		}
		filter.Limit = min(n, maxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return errBadRequest("invalid offset", err)
		}
		filter.Offset = n
	}

	emails, err := a.svc.ListEmails(r.Context(), filter)
	if err != nil {
		return err
	}
	if emails == nil {
		emails = []*mail.Email{}
	}
	writeJSON(w, http.StatusOK, emails)
	return nil
}

func (a *api) getEmail(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	email, err := a.svc.GetEmail(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, email)
	return nil
}

// sendEmail answers 200 whether or not the attempt delivered; the outcome is
// in the body.
func (a *api) sendEmail(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	email, out, err := a.svc.SendNow(r.Context(), id)
	if err != nil {
		return err
	}
	resp := sendResponse{Email: email, Sent: out.Sent()}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (a *api) requeueEmail(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	email, err := a.svc.Requeue(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, email)
	return nil
}

func (a *api) processQueue(w http.ResponseWriter, r *http.Request) error {
	res, err := a.svc.ProcessQueue(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}
