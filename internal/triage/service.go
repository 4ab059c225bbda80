package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/smilecare/internal/urgency"
)

// DefaultAnalysisDelay is the pause between the final answer and the result.
const DefaultAnalysisDelay = 2 * time.Second

const waitPollInterval = 50 * time.Millisecond

var (
	// ErrNotFound is returned for unknown assessments and for those owned by
	// another patient.
	ErrNotFound = errors.New("assessment not found")

	// ErrNotAnswering is returned when answering an assessment that is no
	// longer taking answers.
	ErrNotAnswering = errors.New("assessment is not accepting answers")

	// ErrWrongQuestion is returned when an answer names a question other
	// than the one awaiting an answer, or changes an earlier answer.
	ErrWrongQuestion = errors.New("answer is not for the current question")

	// ErrAnalyzing is returned when resetting an assessment whose result is
	// being computed.
	ErrAnalyzing = errors.New("assessment is being analyzed")
)

// Options tune a Service. Zero values select the defaults.
type Options struct {
	// AnalysisDelay defaults to DefaultAnalysisDelay; negative means none.
	AnalysisDelay time.Duration
	Metrics       *Metrics
	Notifiers     []Notifier
}

// Service is the business boundary for urgency assessments.
type Service struct {
	store     Store
	logger    log.Logger
	delay     time.Duration
	metrics   *Metrics
	notifiers []Notifier

	// serializes read-modify-write of assessments
	mu       sync.Mutex
	inflight sync.WaitGroup
}

// NewService creates a new triage service.
func NewService(store Store, logger log.Logger, opts Options) *Service {
	delay := opts.AnalysisDelay
	if delay < 0 {
		delay = 0
	} else if delay == 0 {
		delay = DefaultAnalysisDelay
	}
	return &Service{
		store:     store,
		logger:    logger,
		delay:     delay,
		metrics:   opts.Metrics,
		notifiers: opts.Notifiers,
	}
}

// Start opens a new assessment at the first question.
func (s *Service) Start(ctx context.Context, patientID string) (*Assessment, error) {
	a := &Assessment{
		ID:        ulid.Make().String(),
		PatientID: patientID,
		Status:    StatusAnswering,
		Answers:   urgency.AnswerSet{},
		CreatedAt: time.Now(),
	}
	if err := s.store.PutAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("put assessment: %w", err)
	}
	if s.metrics != nil {
		s.metrics.StartedTotal.Inc()
	}
	return a, nil
}

// Get returns one of patientID's assessments.
func (s *Service) Get(ctx context.Context, patientID, id string) (*Assessment, error) {
	a, ok, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	if !ok || a.PatientID != patientID {
		return nil, ErrNotFound
	}
	return a, nil
}

// Answer records the answer to questionID, which must be the current
// question. Repeating an earlier answer unchanged returns the assessment as
// is, so a resent request never moves the quiz past a question the patient
// has not seen. The final answer moves the assessment to analyzing and
// schedules classification once.
func (s *Service) Answer(ctx context.Context, patientID, id string, questionID int, yes bool) (*Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.Get(ctx, patientID, id)
	if err != nil {
		return nil, err
	}

	pos, ok := urgency.QuestionIndex(questionID)
	switch {
	case !ok:
		return nil, fmt.Errorf("%w: unknown question %d", ErrWrongQuestion, questionID)
	case pos < a.Current:
		if a.Answers[questionID] == yes {
			return a, nil
		}
		return nil, fmt.Errorf("%w: question %d already answered", ErrWrongQuestion, questionID)
	case a.Status != StatusAnswering:
		return nil, ErrNotAnswering
	case pos > a.Current:
		return nil, fmt.Errorf("%w: question %d not reached", ErrWrongQuestion, questionID)
	}

	quiz := a.Quiz()
	question, _ := quiz.Current()
	if err := quiz.Answer(yes); err != nil {
		// progress says answering but every question is answered
		return nil, fmt.Errorf("%w: %w", ErrNotAnswering, err)
	}
	a.Current = quiz.Index()
	a.Answers = quiz.Answers()

	dispatch := quiz.Done()
	if dispatch {
		a.Status = StatusAnalyzing
	}

	if err := s.store.PutAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("put assessment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AnswersTotal.WithLabelValues(answerLabel(yes)).Inc()
	}
	s.logger.Info(ctx, "assessment answer recorded",
		"assessment_id", a.ID,
		"question_id", question.ID,
		"answer", yes,
		"progress", quiz.Progress(),
	)

	if dispatch {
		s.inflight.Add(1)
		// pass only the ID, the goroutine re-reads the assessment
		go s.classify(context.WithoutCancel(ctx), a.ID)
	}

	return a, nil
}

// Reset discards the answers and returns to the first question. A completed
// assessment can be reset to retake the quiz.
func (s *Service) Reset(ctx context.Context, patientID, id string) (*Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.Get(ctx, patientID, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusAnalyzing {
		return nil, ErrAnalyzing
	}

	a.Status = StatusAnswering
	a.Current = 0
	a.Answers = urgency.AnswerSet{}
	a.Result = nil
	a.CompletedAt = time.Time{}

	if err := s.store.PutAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("put assessment: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ResetsTotal.Inc()
	}
	return a, nil
}

// Wait blocks while the assessment is analyzing, until it completes or ctx
// is done. Assessments that are still answering are returned immediately.
func (s *Service) Wait(ctx context.Context, patientID, id string) (*Assessment, error) {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		a, err := s.Get(ctx, patientID, id)
		if err != nil {
			return nil, err
		}
		if a.Status != StatusAnalyzing {
			return a, nil
		}
		select {
		case <-ctx.Done():
			return a, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown waits for scheduled classifications to finish or ctx to expire.
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

func (s *Service) classify(ctx context.Context, id string) {
	defer s.inflight.Done()
	L := s.logger.With("assessment_id", id)

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	a, ok := s.complete(ctx, L, id)
	if !ok {
		return
	}

	if s.metrics != nil {
		s.metrics.CompletedTotal.WithLabelValues(a.Result.Tier.String()).Inc()
		s.metrics.Score.Observe(float64(a.Result.Score))
		s.metrics.Duration.Observe(a.CompletedAt.Sub(a.CreatedAt).Seconds())
	}

	L.Info(ctx, "assessment complete",
		"score", a.Result.Score,
		"tier", a.Result.Tier.String(),
	)

	if a.Result.Tier != urgency.Urgent {
		return
	}
	for _, n := range s.notifiers {
		if err := n.NotifyUrgent(ctx, a); err != nil {
			L.Warn(ctx, "urgent notification failed", "error", err)
		}
	}
}

// complete computes and persists the result. ok is false when the
// assessment is gone or no longer analyzing.
func (s *Service) complete(ctx context.Context, L log.Logger, id string) (*Assessment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		L.Error(ctx, err, "failed to fetch assessment for classification")
		return nil, false
	}
	if !ok {
		L.Warn(ctx, "assessment not found for classification")
		return nil, false
	}
	if a.Status != StatusAnalyzing {
		return nil, false
	}

	res, err := a.Quiz().Result()
	if err != nil {
		L.Error(ctx, err, "classification on unfinished quiz")
		return nil, false
	}

	a.Status = StatusComplete
	a.Result = &res
	a.CompletedAt = time.Now()

	if err := s.store.PutAssessment(ctx, a); err != nil {
		L.Error(ctx, err, "failed to persist assessment result")
		return nil, false
	}
	return a, true
}

func answerLabel(yes bool) string {
	if yes {
		return "yes"
	}
	return "no"
}
