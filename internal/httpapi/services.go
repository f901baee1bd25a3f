package httpapi

import (
	"errors"
	"net/http"

	"github.com/jmptrader/WebVella-ERP/internal/mail"
	"github.com/jmptrader/WebVella-ERP/pkg/validator"
)

func (a *api) listServices(w http.ResponseWriter, r *http.Request) error {
	services, err := a.svc.ListServices(r.Context())
	if err != nil {
		return err
	}
	if services == nil {
		services = []*mail.SmtpService{}
	}
	writeJSON(w, http.StatusOK, services)
	return nil
}

func (a *api) getService(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	svc, err := a.svc.GetService(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, svc)
	return nil
}

func (a *api) createService(w http.ResponseWriter, r *http.Request) error {
	var in mail.ServiceInput
	if err := decode(w, r, &in); err != nil {
		return err
	}
	svc, err := a.svc.CreateService(r.Context(), in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, svc)
	return nil
}

// updateService applies only the fields present in the body.
func (a *api) updateService(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var in mail.ServiceInput
	if err := decode(w, r, &in); err != nil {
		return err
	}
	svc, err := a.svc.UpdateService(r.Context(), id, in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, svc)
	return nil
}

func (a *api) deleteService(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := a.svc.DeleteService(r.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// testService reports relay failures as 502 with the relay's message.
func (a *api) testService(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req mail.TestRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}

	err = a.svc.TestService(r.Context(), id, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"sent": true})
		return nil
	case validator.IsValidationError(err), errors.Is(err, mail.ErrServiceNotFound):
		return err
	default:
		return NewHTTPError(http.StatusBadGateway, err.Error(), err)
	}
}
