package clinicapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/smilecare/internal/account"
	"github.com/linnemanlabs/smilecare/internal/analysis"
	"github.com/linnemanlabs/smilecare/internal/authmw"
)

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.FromContext(r.Context())
	if claims.Role == account.RoleGuest {
		a.fail(w, r, account.ErrGuest, "get account")
		return
	}
	acct, err := a.Accounts.Get(r.Context(), claims.Subject)
	if err != nil {
		a.fail(w, r, err, "get account")
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (a *API) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err, "decode device request")
		return
	}
	if err := a.Accounts.RegisterDevice(r.Context(), patientID(r), req.Token); err != nil {
		a.fail(w, r, err, "register device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleStartAssessment(w http.ResponseWriter, r *http.Request) {
	as, err := a.Assessments.Start(r.Context(), patientID(r))
	if err != nil {
		a.fail(w, r, err, "start assessment")
		return
	}
	writeJSON(w, http.StatusCreated, newAssessmentView(as))
}

func (a *API) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("smilecare.assessment.id", id))

	get := a.Assessments.Get
	if wantsWait(r) {
		get = a.Assessments.Wait
	}
	ctx, cancel := context.WithTimeout(r.Context(), waitTimeout)
	defer cancel()

	as, err := get(ctx, patientID(r), id)
	if err != nil && !waitExpired(err, as != nil) {
		a.fail(w, r, err, "get assessment")
		return
	}

	span.SetAttributes(attribute.String("smilecare.assessment.status", string(as.Status)))
	writeJSON(w, http.StatusOK, newAssessmentView(as))
}

func (a *API) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID int   `json:"question_id"`
		Answer     *bool `json:"answer"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err, "decode answer")
		return
	}
	if req.QuestionID == 0 || req.Answer == nil {
		writeError(w, http.StatusBadRequest, "question_id and answer are required")
		return
	}
	as, err := a.Assessments.Answer(r.Context(), patientID(r), chi.URLParam(r, "id"), req.QuestionID, *req.Answer)
	if err != nil {
		a.fail(w, r, err, "answer question")
		return
	}
	writeJSON(w, http.StatusOK, newAssessmentView(as))
}

func (a *API) handleResetAssessment(w http.ResponseWriter, r *http.Request) {
	as, err := a.Assessments.Reset(r.Context(), patientID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "reset assessment")
		return
	}
	writeJSON(w, http.StatusOK, newAssessmentView(as))
}

func (a *API) handleSubmitAnalysis(kind analysis.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		job, err := a.Analyses.Submit(r.Context(), patientID(r), kind, image)
		if err != nil {
			a.fail(w, r, err, "submit analysis")
			return
		}
		writeJSON(w, http.StatusAccepted, newJobView(job))
	}
}

func (a *API) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("smilecare.analysis.id", id))

	get := a.Analyses.Get
	if wantsWait(r) {
		get = a.Analyses.Wait
	}
	ctx, cancel := context.WithTimeout(r.Context(), waitTimeout)
	defer cancel()

	job, err := get(ctx, patientID(r), id)
	if err != nil && !waitExpired(err, job != nil) {
		a.fail(w, r, err, "get analysis")
		return
	}
	writeJSON(w, http.StatusOK, newJobView(job))
}

func (a *API) handleListThreads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Chats.List(r.Context(), patientID(r)))
}

func (a *API) handleOpenThread(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DoctorID int `json:"doctor_id"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err, "decode open thread")
		return
	}
	t, err := a.Chats.Open(r.Context(), patientID(r), req.DoctorID)
	if err != nil {
		a.fail(w, r, err, "open thread")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) handleGetThread(w http.ResponseWriter, r *http.Request) {
	t, err := a.Chats.Get(r.Context(), patientID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "get thread")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err, "decode message")
		return
	}
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("smilecare.chat.thread_id", id))

	t, err := a.Chats.Send(r.Context(), patientID(r), id, req.Text)
	if err != nil {
		a.fail(w, r, err, "send message")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) handleFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"product_ids": a.Shop.Favorites(r.Context(), patientID(r))})
}

func (a *API) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		a.fail(w, r, err, "product id")
		return
	}
	fav, err := a.Shop.ToggleFavorite(r.Context(), patientID(r), id)
	if err != nil {
		a.fail(w, r, err, "toggle favorite")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": id, "favorite": fav})
}

func (a *API) handleCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Shop.Cart(r.Context(), patientID(r)))
}

func (a *API) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int `json:"product_id"`
		Quantity  int `json:"quantity"`
	}
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err, "decode cart line")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	cart, err := a.Shop.AddToCart(r.Context(), patientID(r), req.ProductID, req.Quantity)
	if err != nil {
		a.fail(w, r, err, "add to cart")
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (a *API) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		a.fail(w, r, err, "product id")
		return
	}
	cart, err := a.Shop.RemoveFromCart(r.Context(), patientID(r), id)
	if err != nil {
		a.fail(w, r, err, "remove from cart")
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// waitExpired reports whether err is a long poll running out with a value
// still worth returning.
func waitExpired(err error, haveValue bool) bool {
	return haveValue && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
}
