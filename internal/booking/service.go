package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/go-core/log"
)

// ErrNotFound is returned for unknown drafts and appointments, and for those
// owned by another patient.
var ErrNotFound = errors.New("booking not found")

// Metrics holds Prometheus metrics for the booking wizard.
type Metrics struct {
	DraftsTotal       prometheus.Counter
	AppointmentsTotal *prometheus.CounterVec
	RevenueTotal      prometheus.Counter
	IncompleteTotal   prometheus.Counter
}

// NewMetrics registers and returns booking metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DraftsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smilecare_booking_drafts_total",
			Help: "Total booking drafts started.",
		}),
		AppointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecare_appointments_total",
			Help: "Total confirmed appointments by service.",
		}, []string{"service"}),
		RevenueTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smilecare_appointment_revenue_total",
			Help: "Sum of total cost over confirmed appointments.",
		}),
		IncompleteTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smilecare_booking_incomplete_confirms_total",
			Help: "Confirm attempts rejected because a selection was missing.",
		}),
	}
	reg.MustRegister(m.DraftsTotal, m.AppointmentsTotal, m.RevenueTotal, m.IncompleteTotal)
	return m
}

// Service is the business boundary for the booking wizard.
type Service struct {
	store     Store
	notifiers []Notifier
	metrics   *Metrics
	logger    log.Logger
	now       func() time.Time

	// serializes read-modify-write of drafts
	mu       sync.Mutex
	inflight sync.WaitGroup
}

// NewService creates a booking service. metrics may be nil.
func NewService(store Store, metrics *Metrics, logger log.Logger, notifiers ...Notifier) *Service {
	return &Service{
		store:     store,
		notifiers: notifiers,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Start opens a new draft for patientID.
func (s *Service) Start(ctx context.Context, patientID string) (*Draft, error) {
	d := NewDraft(patientID, s.now())
	if err := s.store.PutDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("put draft: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DraftsTotal.Inc()
	}
	return d, nil
}

// Get returns one of patientID's drafts.
func (s *Service) Get(ctx context.Context, patientID, id string) (*Draft, error) {
	d, ok, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	if !ok || d.PatientID != patientID {
		return nil, ErrNotFound
	}
	return d, nil
}

// SelectDoctor records the doctor on one of patientID's drafts.
func (s *Service) SelectDoctor(ctx context.Context, patientID, id string, doctorID int) (*Draft, error) {
	return s.update(ctx, patientID, id, func(d *Draft) error { return d.SelectDoctor(doctorID) })
}

// SelectService records the service.
func (s *Service) SelectService(ctx context.Context, patientID, id string, serviceID int) (*Draft, error) {
	return s.update(ctx, patientID, id, func(d *Draft) error { return d.SelectService(serviceID) })
}

// SelectDate records a YYYY-MM-DD date inside the booking window.
func (s *Service) SelectDate(ctx context.Context, patientID, id, date string) (*Draft, error) {
	return s.update(ctx, patientID, id, func(d *Draft) error { return d.SelectDate(date, s.now()) })
}

// SelectTime records one of the catalog time slots.
func (s *Service) SelectTime(ctx context.Context, patientID, id, slot string) (*Draft, error) {
	return s.update(ctx, patientID, id, func(d *Draft) error { return d.SelectTime(slot) })
}

// Back moves the draft to the previous step.
func (s *Service) Back(ctx context.Context, patientID, id string) (*Draft, error) {
	return s.update(ctx, patientID, id, func(d *Draft) error { return d.Back() })
}

// Confirm turns a complete draft into an appointment and notifies. A draft
// with a missing selection yields ErrIncompleteSelection and nothing is
// persisted or sent.
func (s *Service) Confirm(ctx context.Context, patientID, id string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.Get(ctx, patientID, id)
	if err != nil {
		return nil, err
	}

	appt, err := d.Confirm(s.now())
	if err != nil {
		if errors.Is(err, ErrIncompleteSelection) && s.metrics != nil {
			s.metrics.IncompleteTotal.Inc()
		}
		return nil, err
	}

	if err := s.store.ConfirmDraft(ctx, d, appt); err != nil {
		if errors.Is(err, ErrAlreadyConfirmed) {
			return nil, err
		}
		return nil, fmt.Errorf("confirm draft: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AppointmentsTotal.WithLabelValues(appt.ServiceName).Inc()
		s.metrics.RevenueTotal.Add(float64(appt.TotalCost))
	}

	s.logger.Info(ctx, "appointment confirmed",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"service_id", appt.ServiceID,
		"date", appt.Date,
		"time", appt.Time,
		"total_cost", appt.TotalCost,
	)

	if len(s.notifiers) > 0 {
		// pass only the ID, the goroutine re-reads the appointment
		s.inflight.Add(1)
		go s.notify(context.WithoutCancel(ctx), appt.ID)
	}

	return appt, nil
}

// GetAppointment returns one of patientID's appointments.
func (s *Service) GetAppointment(ctx context.Context, patientID, id string) (*Appointment, error) {
	a, ok, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if !ok || a.PatientID != patientID {
		return nil, ErrNotFound
	}
	return a, nil
}

// Appointments lists patientID's appointments.
func (s *Service) Appointments(ctx context.Context, patientID string) ([]*Appointment, error) {
	if patientID == "" {
		return nil, ErrNotFound
	}
	return s.store.ListAppointments(ctx, patientID)
}

// AllAppointments lists every appointment, for staff.
func (s *Service) AllAppointments(ctx context.Context) ([]*Appointment, error) {
	return s.store.ListAppointments(ctx, "")
}

// Shutdown waits for pending confirmation notifications or ctx to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) update(ctx context.Context, patientID, id string, fn func(*Draft) error) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.Get(ctx, patientID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	d.UpdatedAt = s.now()
	if err := s.store.PutDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("put draft: %w", err)
	}
	return d, nil
}

func (s *Service) notify(ctx context.Context, id string) {
	defer s.inflight.Done()
	L := s.logger.With("appointment_id", id)

	appt, ok, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		L.Error(ctx, err, "failed to fetch appointment for notification")
		return
	}
	if !ok {
		L.Warn(ctx, "appointment not found for notification")
		return
	}

	for _, n := range s.notifiers {
		if err := n.NotifyAppointment(ctx, appt); err != nil {
			L.Warn(ctx, "appointment notification failed", "error", err)
		}
	}
}
