package clinicapi

import (
	"net/http"
	"time"

	"github.com/linnemanlabs/smilecare/internal/catalog"
	"github.com/linnemanlabs/smilecare/internal/urgency"
)

var catalogNotFound = catalog.ErrNotFound

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err, "decode register request")
		return
	}
	sess, err := a.Accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err, "register account")
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err, "decode login request")
		return
	}
	sess, err := a.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err, "login")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleGuest(w http.ResponseWriter, r *http.Request) {
	sess, err := a.Accounts.Guest(r.Context())
	if err != nil {
		a.fail(w, r, err, "guest session")
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (a *API) handleDoctors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Doctors())
}

func (a *API) handleDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		a.fail(w, r, err, "doctor id")
		return
	}
	d, err := catalog.DoctorByID(id)
	if err != nil {
		a.fail(w, r, err, "get doctor")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleServices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Services())
}

func (a *API) handleOfferings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Offerings())
}

func (a *API) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Categories())
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, catalog.FilterProducts(q.Get("category"), q.Get("q")))
}

func (a *API) handleDates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.BookingDates(time.Now()))
}

func (a *API) handleTimeSlots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.TimeSlots())
}

func (a *API) handleQuestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"questions": urgency.Questions(),
		"max_score": urgency.MaxScore(),
	})
}

func (a *API) handleTiers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, urgency.Tiers())
}
