// Package memstore provides an in-memory implementation of the triage,
// booking and account stores. Suitable for dev/testing.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/smilecare/internal/account"
	"github.com/linnemanlabs/smilecare/internal/booking"
	"github.com/linnemanlabs/smilecare/internal/triage"
)

// Store holds every record in memory. Values are copied in and out.
type Store struct {
	mu           sync.RWMutex
	assessments  map[string]*triage.Assessment
	drafts       map[string]*booking.Draft
	appointments map[string]*booking.Appointment
	accounts     map[string]*account.Account // account ID -> account
	emails       map[string]string           // email -> account ID
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		assessments:  make(map[string]*triage.Assessment),
		drafts:       make(map[string]*booking.Draft),
		appointments: make(map[string]*booking.Appointment),
		accounts:     make(map[string]*account.Account),
		emails:       make(map[string]string),
	}
}

// GetAssessment retrieves an assessment by ID. Returns a copy.
func (s *Store) GetAssessment(_ context.Context, id string) (*triage.Assessment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[id]
	if !ok {
		return nil, false, nil
	}
	return a.Clone(), true, nil
}

// PutAssessment stores a copy of the assessment.
func (s *Store) PutAssessment(_ context.Context, a *triage.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[a.ID] = a.Clone()
	return nil
}

// GetDraft retrieves a booking draft by ID. Returns a copy.
func (s *Store) GetDraft(_ context.Context, id string) (*booking.Draft, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, false, nil
	}
	cp := *d
	return &cp, true, nil
}

// PutDraft stores a copy of the draft.
func (s *Store) PutDraft(_ context.Context, d *booking.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.drafts[d.ID] = &cp
	return nil
}

// GetAppointment retrieves an appointment by ID. Returns a copy.
func (s *Store) GetAppointment(_ context.Context, id string) (*booking.Appointment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, false, nil
	}
	cp := *a
	return &cp, true, nil
}

// ConfirmDraft stores copies of the confirmed draft and its appointment
// together. A draft that already has an appointment yields
// booking.ErrAlreadyConfirmed and nothing is written.
func (s *Store) ConfirmDraft(_ context.Context, d *booking.Draft, a *booking.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.drafts[d.ID]; ok && cur.AppointmentID != "" {
		return booking.ErrAlreadyConfirmed
	}
	for _, existing := range s.appointments {
		if existing.DraftID == a.DraftID {
			return booking.ErrAlreadyConfirmed
		}
	}

	dc, ac := *d, *a
	dc.AppointmentID = a.ID
	s.drafts[d.ID] = &dc
	s.appointments[a.ID] = &ac
	return nil
}

// ListAppointments returns copies of a patient's appointments, newest first.
// An empty patientID lists all of them.
func (s *Store) ListAppointments(_ context.Context, patientID string) ([]*booking.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*booking.Appointment, 0)
	for _, a := range s.appointments {
		if patientID != "" && a.PatientID != patientID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetAccount retrieves an account by ID. Returns a copy.
func (s *Store) GetAccount(_ context.Context, id string) (*account.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, false, nil
	}
	return cloneAccount(a), true, nil
}

// GetAccountByEmail retrieves an account by its normalized email. Returns a copy.
func (s *Store) GetAccountByEmail(_ context.Context, email string) (*account.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, false, nil
	}
	return cloneAccount(s.accounts[id]), true, nil
}

// CreateAccount stores a copy of a new account.
func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[a.Email]; ok {
		return account.ErrEmailTaken
	}
	s.accounts[a.ID] = cloneAccount(a)
	s.emails[a.Email] = a.ID
	return nil
}

// SetDeviceToken records the push token for an account.
func (s *Store) SetDeviceToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return account.ErrNotFound
	}
	a.DeviceToken = token
	return nil
}

func cloneAccount(a *account.Account) *account.Account {
	cp := *a
	cp.PasswordHash = append([]byte(nil), a.PasswordHash...)
	return &cp
}
