// Package clinicapi is the JSON HTTP API of the clinic app.
package clinicapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/smilecare/internal/account"
	"github.com/linnemanlabs/smilecare/internal/analysis"
	"github.com/linnemanlabs/smilecare/internal/assistant"
	"github.com/linnemanlabs/smilecare/internal/authmw"
	"github.com/linnemanlabs/smilecare/internal/booking"
	"github.com/linnemanlabs/smilecare/internal/shop"
	"github.com/linnemanlabs/smilecare/internal/triage"
)

const (
	maxBodyBytes  = 1 << 20
	maxImageBytes = 10 << 20

	// waitTimeout bounds ?wait=1 long polls.
	waitTimeout = 10 * time.Second
)

var errBadRequest = errors.New("invalid payload")

// Accounts is what the API needs from account.Service.
type Accounts interface {
	Register(ctx context.Context, name, email, password string) (*account.Session, error)
	Login(ctx context.Context, email, password string) (*account.Session, error)
	Guest(ctx context.Context) (*account.Session, error)
	Get(ctx context.Context, id string) (*account.Account, error)
	RegisterDevice(ctx context.Context, id, token string) error
}

// Assessments is what the API needs from triage.Service.
type Assessments interface {
	Start(ctx context.Context, patientID string) (*triage.Assessment, error)
	Get(ctx context.Context, patientID, id string) (*triage.Assessment, error)
	Answer(ctx context.Context, patientID, id string, questionID int, yes bool) (*triage.Assessment, error)
	Reset(ctx context.Context, patientID, id string) (*triage.Assessment, error)
	Wait(ctx context.Context, patientID, id string) (*triage.Assessment, error)
}

// Bookings is what the API needs from booking.Service.
type Bookings interface {
	Start(ctx context.Context, patientID string) (*booking.Draft, error)
	Get(ctx context.Context, patientID, id string) (*booking.Draft, error)
	SelectDoctor(ctx context.Context, patientID, id string, doctorID int) (*booking.Draft, error)
	SelectService(ctx context.Context, patientID, id string, serviceID int) (*booking.Draft, error)
	SelectDate(ctx context.Context, patientID, id, date string) (*booking.Draft, error)
	SelectTime(ctx context.Context, patientID, id, slot string) (*booking.Draft, error)
	Back(ctx context.Context, patientID, id string) (*booking.Draft, error)
	Confirm(ctx context.Context, patientID, id string) (*booking.Appointment, error)
	GetAppointment(ctx context.Context, patientID, id string) (*booking.Appointment, error)
	Appointments(ctx context.Context, patientID string) ([]*booking.Appointment, error)
	AllAppointments(ctx context.Context) ([]*booking.Appointment, error)
}

// Analyses is what the API needs from analysis.Service.
type Analyses interface {
	Submit(ctx context.Context, patientID string, kind analysis.Kind, image []byte) (*analysis.Job, error)
	Get(ctx context.Context, patientID, id string) (*analysis.Job, error)
	Wait(ctx context.Context, patientID, id string) (*analysis.Job, error)
}

// Chats is what the API needs from assistant.Service.
type Chats interface {
	Open(ctx context.Context, patientID string, doctorID int) (*assistant.Thread, error)
	Get(ctx context.Context, patientID, id string) (*assistant.Thread, error)
	List(ctx context.Context, patientID string) []*assistant.Thread
	Send(ctx context.Context, patientID, id, text string) (*assistant.Thread, error)
}

// Shop is what the API needs from shop.Service.
type Shop interface {
	ToggleFavorite(ctx context.Context, patientID string, productID int) (bool, error)
	Favorites(ctx context.Context, patientID string) []int
	AddToCart(ctx context.Context, patientID string, productID, quantity int) (*shop.Cart, error)
	RemoveFromCart(ctx context.Context, patientID string, productID int) (*shop.Cart, error)
	Cart(ctx context.Context, patientID string) *shop.Cart
}

// Deps are the services behind the API. StaffToken may be empty, in which
// case the admin routes are not mounted.
type Deps struct {
	Accounts    Accounts
	Tokens      authmw.TokenParser
	Assessments Assessments
	Bookings    Bookings
	Analyses    Analyses
	Chats       Chats
	Shop        Shop
	StaffToken  string
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	Deps
}

// New creates the API. Every service in deps is required.
func New(logger log.Logger, deps Deps) *API {
	if logger == nil {
		logger = log.Nop()
	}
	switch {
	case deps.Accounts == nil, deps.Tokens == nil:
		panic(xerrors.New("account service and token parser are required"))
	case deps.Assessments == nil:
		panic(xerrors.New("assessment service is required"))
	case deps.Bookings == nil:
		panic(xerrors.New("booking service is required"))
	case deps.Analyses == nil:
		panic(xerrors.New("analysis service is required"))
	case deps.Chats == nil:
		panic(xerrors.New("chat service is required"))
	case deps.Shop == nil:
		panic(xerrors.New("shop service is required"))
	}
	return &API{logger: logger, Deps: deps}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", a.handleRegister)
		r.Post("/auth/login", a.handleLogin)
		r.Post("/auth/guest", a.handleGuest)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/doctors", a.handleDoctors)
			r.Get("/doctors/{id}", a.handleDoctor)
			r.Get("/services", a.handleServices)
			r.Get("/offerings", a.handleOfferings)
			r.Get("/categories", a.handleCategories)
			r.Get("/products", a.handleProducts)
			r.Get("/dates", a.handleDates)
			r.Get("/timeslots", a.handleTimeSlots)
		})

		r.Get("/urgency/questions", a.handleQuestions)
		r.Get("/urgency/tiers", a.handleTiers)

		r.Group(func(r chi.Router) {
			r.Use(authmw.Session(a.Tokens))

			r.Get("/me", a.handleMe)
			r.Put("/me/device", a.handleRegisterDevice)

			r.Post("/assessments", a.handleStartAssessment)
			r.Get("/assessments/{id}", a.handleGetAssessment)
			r.Post("/assessments/{id}/answers", a.handleAnswer)
			r.Post("/assessments/{id}/reset", a.handleResetAssessment)

			r.Post("/bookings", a.handleStartBooking)
			r.Get("/bookings/{id}", a.handleGetBooking)
			r.Put("/bookings/{id}/doctor", a.handleSelectDoctor)
			r.Put("/bookings/{id}/service", a.handleSelectService)
			r.Put("/bookings/{id}/date", a.handleSelectDate)
			r.Put("/bookings/{id}/time", a.handleSelectTime)
			r.Post("/bookings/{id}/back", a.handleBack)
			r.Post("/bookings/{id}/confirm", a.handleConfirm)
			r.Get("/appointments", a.handleAppointments)
			r.Get("/appointments/{id}", a.handleGetAppointment)

			r.Post("/analysis/oral", a.handleSubmitAnalysis(analysis.KindOral))
			r.Post("/analysis/skin", a.handleSubmitAnalysis(analysis.KindSkin))
			r.Get("/analysis/{id}", a.handleGetAnalysis)

			r.Get("/chat/threads", a.handleListThreads)
			r.Post("/chat/threads", a.handleOpenThread)
			r.Get("/chat/threads/{id}", a.handleGetThread)
			r.Post("/chat/threads/{id}/messages", a.handleSendMessage)

			r.Get("/shop/favorites", a.handleFavorites)
			r.Post("/shop/favorites/{id}", a.handleToggleFavorite)
			r.Get("/shop/cart", a.handleCart)
			r.Post("/shop/cart", a.handleAddToCart)
			r.Delete("/shop/cart/{id}", a.handleRemoveFromCart)
		})

		if a.StaffToken != "" {
			r.Group(func(r chi.Router) {
				r.Use(authmw.BearerToken(a.StaffToken))
				r.Get("/admin/appointments", a.handleAllAppointments)
			})
		}
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, account.ErrMissingFields),
		errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, booking.ErrInvalidTime),
		errors.Is(err, shop.ErrInvalidQuantity),
		errors.Is(err, assistant.ErrEmptyMessage),
		errors.Is(err, assistant.ErrMessageTooLong):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, account.ErrGuest):
		return http.StatusForbidden
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, triage.ErrNotFound),
		errors.Is(err, booking.ErrNotFound),
		errors.Is(err, analysis.ErrNotFound),
		errors.Is(err, analysis.ErrUnknownKind),
		errors.Is(err, assistant.ErrNotFound),
		errors.Is(err, catalogNotFound):
		return http.StatusNotFound
	case errors.Is(err, account.ErrEmailTaken),
		errors.Is(err, booking.ErrAlreadyConfirmed),
		errors.Is(err, triage.ErrNotAnswering),
		errors.Is(err, triage.ErrWrongQuestion),
		errors.Is(err, triage.ErrAnalyzing):
		return http.StatusConflict
	case errors.Is(err, booking.ErrIncompleteSelection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, analysis.ErrTooManyJobs),
		errors.Is(err, assistant.ErrTooManyThreads):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Unmapped errors are logged and hidden.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(r.Context(), err, msg, "path", r.URL.Path)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// intParam parses a numeric URL parameter. Non-numeric IDs are unknown IDs.
func intParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, chi.URLParam(r, name), catalogNotFound)
	}
	return id, nil
}

func wantsWait(r *http.Request) bool {
	v := r.URL.Query().Get("wait")
	return v == "1" || v == "true"
}

func patientID(r *http.Request) string {
	return authmw.PatientID(r.Context())
}
