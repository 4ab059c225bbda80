package clinicapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/smilecare/internal/booking"
)

func (a *API) handleStartBooking(w http.ResponseWriter, r *http.Request) {
	d, err := a.Bookings.Start(r.Context(), patientID(r))
	if err != nil {
		a.fail(w, r, err, "start booking")
		return
	}
	writeJSON(w, http.StatusCreated, newDraftView(d))
}

func (a *API) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	d, err := a.Bookings.Get(r.Context(), patientID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "get booking")
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(d))
}

type selectionRequest struct {
	DoctorID  int    `json:"doctor_id"`
	ServiceID int    `json:"service_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

// selectHandler decodes a selection and applies it with fn.
func (a *API) selectHandler(step string, fn func(r *http.Request, id string, req selectionRequest) (*booking.Draft, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectionRequest
		if err := decode(w, r, &req); err != nil {
			a.fail(w, r, err, "decode selection")
			return
		}
		id := chi.URLParam(r, "id")
		trace.SpanFromContext(r.Context()).SetAttributes(
			attribute.String("smilecare.booking.id", id),
			attribute.String("smilecare.booking.step", step),
		)
		d, err := fn(r, id, req)
		if err != nil {
			a.fail(w, r, err, "select "+step)
			return
		}
		writeJSON(w, http.StatusOK, newDraftView(d))
	}
}

func (a *API) handleSelectDoctor(w http.ResponseWriter, r *http.Request) {
	a.selectHandler("doctor", func(r *http.Request, id string, req selectionRequest) (*booking.Draft, error) {
		return a.Bookings.SelectDoctor(r.Context(), patientID(r), id, req.DoctorID)
	})(w, r)
}

func (a *API) handleSelectService(w http.ResponseWriter, r *http.Request) {
	a.selectHandler("service", func(r *http.Request, id string, req selectionRequest) (*booking.Draft, error) {
		return a.Bookings.SelectService(r.Context(), patientID(r), id, req.ServiceID)
	})(w, r)
}

func (a *API) handleSelectDate(w http.ResponseWriter, r *http.Request) {
	a.selectHandler("date", func(r *http.Request, id string, req selectionRequest) (*booking.Draft, error) {
		return a.Bookings.SelectDate(r.Context(), patientID(r), id, req.Date)
	})(w, r)
}

func (a *API) handleSelectTime(w http.ResponseWriter, r *http.Request) {
	a.selectHandler("time", func(r *http.Request, id string, req selectionRequest) (*booking.Draft, error) {
		return a.Bookings.SelectTime(r.Context(), patientID(r), id, req.Time)
	})(w, r)
}

func (a *API) handleBack(w http.ResponseWriter, r *http.Request) {
	d, err := a.Bookings.Back(r.Context(), patientID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "booking back")
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(d))
}

func (a *API) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("smilecare.booking.id", id))

	appt, err := a.Bookings.Confirm(r.Context(), patientID(r), id)
	if err != nil {
		a.fail(w, r, err, "confirm booking")
		return
	}
	span.SetAttributes(attribute.String("smilecare.appointment.id", appt.ID))
	writeJSON(w, http.StatusCreated, appt)
}

func (a *API) handleAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := a.Bookings.Appointments(r.Context(), patientID(r))
	if err != nil {
		a.fail(w, r, err, "list appointments")
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (a *API) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := a.Bookings.GetAppointment(r.Context(), patientID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "get appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (a *API) handleAllAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := a.Bookings.AllAppointments(r.Context())
	if err != nil {
		a.fail(w, r, err, "list all appointments")
		return
	}
	writeJSON(w, http.StatusOK, appts)
}
