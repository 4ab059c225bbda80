// Package assistant implements doctor chat. Threads open with the doctor's
// greeting; each patient message gets one doctor reply from a Responder,
// either the canned reply or a tool-using model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/smilecare/internal/catalog"
)

// MaxMessageLength is the longest patient message accepted, in runes.
const MaxMessageLength = 2000

// Thread retention. Idle threads are dropped when a thread is opened, and a
// patient at the cap loses their least recently active thread.
const (
	ThreadIdleTimeout    = 24 * time.Hour
	MaxThreadsPerPatient = 10
)

var (
	ErrNotFound       = errors.New("chat thread not found")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
	ErrUnknownDoctor  = fmt.Errorf("doctor: %w", catalog.ErrNotFound)
	ErrTooManyThreads = errors.New("too many chat threads in use")
)

type entry struct {
	// held for the whole of Send so replies stay in order
	sending sync.Mutex
	thread  *Thread
	// guarded by Service.mu
	active  time.Time
	pending int
}

// Service owns chat threads. Threads are kept in memory.
type Service struct {
	responder Responder
	logger    log.Logger
	metrics   *Metrics
	idle      time.Duration
	maxPer    int
	now       func() time.Time

	mu      sync.Mutex
	threads map[string]*entry
}

// NewService creates a chat service. A nil responder selects CannedResponder.
func NewService(responder Responder, logger log.Logger, metrics *Metrics) *Service {
	if responder == nil {
		responder = CannedResponder{}
	}
	return &Service{
		responder: responder,
		logger:    logger,
		metrics:   metrics,
		idle:      ThreadIdleTimeout,
		maxPer:    MaxThreadsPerPatient,
		now:       time.Now,
		threads:   make(map[string]*entry),
	}
}

// Open starts a thread with doctorID, seeded with the doctor's greeting.
// ErrTooManyThreads means every thread the patient holds is mid-reply.
func (s *Service) Open(ctx context.Context, patientID string, doctorID int) (*Thread, error) {
	doctor, err := catalog.DoctorByID(doctorID)
	if err != nil {
		return nil, ErrUnknownDoctor
	}

	now := s.now()
	t := &Thread{
		ID:         ulid.Make().String(),
		PatientID:  patientID,
		DoctorID:   doctor.ID,
		DoctorName: doctor.Name,
		CreatedAt:  now,
	}
	t.append(SenderDoctor, doctor.Greeting, now)

	s.mu.Lock()
	evicted := s.expire(now)
	if !s.makeRoom(patientID) {
		s.mu.Unlock()
		return nil, ErrTooManyThreads
	}
	s.threads[t.ID] = &entry{thread: t, active: now}
	out := t.Clone()
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Debug(ctx, "idle chat threads dropped", "count", evicted)
	}

	if s.metrics != nil {
		s.metrics.ThreadsTotal.Inc()
		s.metrics.MessagesTotal.WithLabelValues(string(SenderDoctor)).Inc()
	}
	s.logger.Info(ctx, "chat thread opened", "thread_id", t.ID, "doctor_id", doctor.ID)
	return out, nil
}

// Get returns one of patientID's threads.
func (s *Service) Get(_ context.Context, patientID, id string) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.threads[id]
	if !ok || e.thread.PatientID != patientID {
		return nil, ErrNotFound
	}
	return e.thread.Clone(), nil
}

// List returns patientID's threads, oldest first.
func (s *Service) List(_ context.Context, patientID string) []*Thread {
	s.mu.Lock()
	out := make([]*Thread, 0)
	for _, e := range s.threads {
		if e.thread.PatientID == patientID {
			out = append(out, e.thread.Clone())
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b *Thread) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Send appends the patient's message and the doctor's reply. Blank text is
// rejected with ErrEmptyMessage and leaves the thread unchanged.
func (s *Service) Send(ctx context.Context, patientID, id, text string) (*Thread, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	s.mu.Lock()
	e, ok := s.threads[id]
	if ok && e.thread.PatientID == patientID {
		e.pending++
	}
	s.mu.Unlock()
	if !ok || e.thread.PatientID != patientID {
		return nil, ErrNotFound
	}
	defer func() {
		s.mu.Lock()
		e.pending--
		s.mu.Unlock()
	}()

	e.sending.Lock()
	defer e.sending.Unlock()

	s.mu.Lock()
	e.active = s.now()
	e.thread.append(SenderPatient, text, e.active)
	snapshot := e.thread.Clone()
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.MessagesTotal.WithLabelValues(string(SenderPatient)).Inc()
	}

	doctor, err := catalog.DoctorByID(snapshot.DoctorID)
	if err != nil {
		return nil, ErrUnknownDoctor
	}
	reply, err := s.responder.Reply(ctx, doctor, snapshot)
	if err != nil {
		return nil, fmt.Errorf("doctor reply: %w", err)
	}

	s.mu.Lock()
	e.active = s.now()
	e.thread.append(SenderDoctor, reply, e.active)
	out := e.thread.Clone()
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.MessagesTotal.WithLabelValues(string(SenderDoctor)).Inc()
	}

	s.logger.Info(ctx, "chat reply sent", "thread_id", id, "messages", len(out.Messages))
	return out, nil
}

// expire drops threads idle for longer than s.idle. Callers hold s.mu.
func (s *Service) expire(now time.Time) int {
	n := 0
	for id, e := range s.threads {
		if e.pending == 0 && now.Sub(e.active) > s.idle {
			delete(s.threads, id)
			n++
		}
	}
	return n
}

// makeRoom drops patientID's least recently active threads until one more
// fits. Threads awaiting a reply are kept. Callers hold s.mu.
func (s *Service) makeRoom(patientID string) bool {
	for {
		count := 0
		var oldest *entry
		for _, e := range s.threads {
			if e.thread.PatientID != patientID {
				continue
			}
			count++
			if e.pending == 0 && (oldest == nil || e.active.Before(oldest.active)) {
				oldest = e
			}
		}
		if count < s.maxPer {
			return true
		}
		if oldest == nil {
			return false
		}
		delete(s.threads, oldest.thread.ID)
	}
}
