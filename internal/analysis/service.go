// Package analysis runs the simulated photo health checks. A submitted photo
// is never inspected: every job walks a fixed list of progress steps and
// then reveals the canned report for its kind.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Defaults for the cosmetic delays.
const (
	DefaultStepInterval = 800 * time.Millisecond
	DefaultSettle       = time.Second
	DefaultSkinDuration = 3 * time.Second
)

// Defaults for how many finished jobs are kept.
const (
	DefaultRetention     = time.Hour
	DefaultMaxPerPatient = 20
)

const waitPollInterval = 50 * time.Millisecond

var (
	ErrNotFound    = errors.New("analysis not found")
	ErrUnknownKind = errors.New("unknown analysis kind")
	ErrTooManyJobs = errors.New("too many analyses in progress")
)

// Kind selects which canned report a job produces.
type Kind string

const (
	KindOral Kind = "oral"
	KindSkin Kind = "skin"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindOral, KindSkin:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
)

// Job is a single photo analysis.
type Job struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	Kind        Kind      `json:"kind"`
	Status      Status    `json:"status"`
	Step        int       `json:"step"`
	Steps       []Step    `json:"steps"`
	ImageBytes  int       `json:"image_bytes"`
	Report      *Report   `json:"report,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// Progress is the fraction of steps reached, in (0, 1].
func (j *Job) Progress() float64 {
	if len(j.Steps) == 0 {
		return 1
	}
	return float64(j.Step+1) / float64(len(j.Steps))
}

// Options tune a Service. Zero values select the defaults; negative means no
// delay.
type Options struct {
	StepInterval time.Duration
	Settle       time.Duration
	SkinDuration time.Duration
	Metrics      *Metrics

	// Retention is how long a completed job stays readable.
	Retention time.Duration
	// MaxPerPatient caps the jobs held for one patient. The oldest
	// completed job makes room for a new one.
	MaxPerPatient int
}

// Metrics holds Prometheus metrics for photo analyses.
type Metrics struct {
	SubmittedTotal *prometheus.CounterVec
	CompletedTotal *prometheus.CounterVec
}

// NewMetrics registers and returns analysis metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecare_analysis_submitted_total",
			Help: "Total photo analyses submitted by kind.",
		}, []string{"kind"}),
		CompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecare_analysis_completed_total",
			Help: "Total photo analyses completed by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.SubmittedTotal, m.CompletedTotal)
	return m
}

// Service owns in-flight and finished analysis jobs.
type Service struct {
	logger  log.Logger
	metrics *Metrics

	stepInterval time.Duration
	settle       time.Duration
	skinDuration time.Duration
	retention    time.Duration
	maxPer       int
	now          func() time.Time

	mu       sync.Mutex
	jobs     map[string]*Job
	inflight sync.WaitGroup
}

// NewService creates an analysis service.
func NewService(logger log.Logger, opts Options) *Service {
	maxPer := opts.MaxPerPatient
	if maxPer <= 0 {
		maxPer = DefaultMaxPerPatient
	}
	return &Service{
		logger:       logger,
		metrics:      opts.Metrics,
		stepInterval: orDefault(opts.StepInterval, DefaultStepInterval),
		settle:       orDefault(opts.Settle, DefaultSettle),
		skinDuration: orDefault(opts.SkinDuration, DefaultSkinDuration),
		retention:    orDefault(opts.Retention, DefaultRetention),
		maxPer:       maxPer,
		now:          time.Now,
		jobs:         make(map[string]*Job),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	switch {
	case d < 0:
		return 0
	case d == 0:
		return def
	}
	return d
}

// Submit starts an analysis of the given kind. image is accepted for
// parity with the client and never read beyond its size. Expired jobs are
// dropped first. ErrTooManyJobs means the patient's limit is taken by jobs
// still processing.
func (s *Service) Submit(ctx context.Context, patientID string, kind Kind, image []byte) (*Job, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	j := &Job{
		ID:         ulid.Make().String(),
		PatientID:  patientID,
		Kind:       kind,
		Status:     StatusProcessing,
		Steps:      stepsFor(kind),
		ImageBytes: len(image),
		CreatedAt:  s.now(),
	}

	s.mu.Lock()
	evicted := s.expire(j.CreatedAt)
	if !s.makeRoom(patientID) {
		s.mu.Unlock()
		return nil, ErrTooManyJobs
	}
	s.jobs[j.ID] = j
	out := *j
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Debug(ctx, "expired analyses dropped", "count", evicted)
	}

	if s.metrics != nil {
		s.metrics.SubmittedTotal.WithLabelValues(string(kind)).Inc()
	}
	s.logger.Info(ctx, "analysis submitted", "analysis_id", j.ID, "kind", string(kind), "image_bytes", len(image))

	s.inflight.Add(1)
	go s.run(context.WithoutCancel(ctx), j.ID, kind)

	return &out, nil
}

// Get returns one of patientID's jobs.
func (s *Service) Get(_ context.Context, patientID, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.PatientID != patientID {
		return nil, ErrNotFound
	}
	// Report and Steps are never mutated once set
	out := *j
	return &out, nil
}

// Wait blocks until the job completes or ctx is done.
func (s *Service) Wait(ctx context.Context, patientID, id string) (*Job, error) {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		j, err := s.Get(ctx, patientID, id)
		if err != nil {
			return nil, err
		}
		if j.Status == StatusComplete {
			return j, nil
		}
		select {
		case <-ctx.Done():
			return j, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown waits for running jobs to finish or ctx to expire.
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

func (s *Service) run(ctx context.Context, id string, kind Kind) {
	defer s.inflight.Done()

	interval, settle := s.stepInterval, s.settle
	if kind == KindSkin {
		interval, settle = s.skinDuration, 0
	}

	steps := len(stepsFor(kind))
	for i := range steps {
		sleep(interval)
		s.mu.Lock()
		s.jobs[id].Step = i
		s.mu.Unlock()
	}
	sleep(settle)

	s.mu.Lock()
	j := s.jobs[id]
	j.Status = StatusComplete
	j.Report = reportFor(kind)
	j.CompletedAt = s.now()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.CompletedTotal.WithLabelValues(string(kind)).Inc()
	}
	s.logger.Info(ctx, "analysis complete", "analysis_id", id, "kind", string(kind))
}

// expire drops completed jobs older than the retention window. Callers hold
// s.mu.
func (s *Service) expire(now time.Time) int {
	n := 0
	for id, j := range s.jobs {
		if j.Status == StatusComplete && now.Sub(j.CompletedAt) > s.retention {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// makeRoom evicts patientID's oldest completed jobs until one more fits.
// Processing jobs are never evicted. Callers hold s.mu.
func (s *Service) makeRoom(patientID string) bool {
	for {
		count := 0
		var oldest *Job
		for _, j := range s.jobs {
			if j.PatientID != patientID {
				continue
			}
			count++
			if j.Status == StatusComplete && (oldest == nil || j.CompletedAt.Before(oldest.CompletedAt)) {
				oldest = j
			}
		}
		if count < s.maxPer {
			return true
		}
		if oldest == nil {
			return false
		}
		delete(s.jobs, oldest.ID)
	}
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
