// Package dbstats collects per-query database timings from every store
// backend. Queries feed a process-wide observer (Prometheus in main) and the
// per-request totals that end up on the request span.
package dbstats

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Query describes one finished statement.
type Query struct {
	System   string
	Method   string
	Route    string
	Outcome  string
	Duration time.Duration
}

// Observer receives every finished query.
type Observer interface {
	ObserveQuery(ctx context.Context, q Query)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ctx context.Context, q Query)

// ObserveQuery implements Observer.
func (f ObserverFunc) ObserveQuery(ctx context.Context, q Query) { f(ctx, q) }

type observerHolder struct{ Observer }

var observer atomic.Pointer[observerHolder]

// SetObserver installs the process-wide observer. nil removes it.
func SetObserver(o Observer) {
	if o == nil {
		observer.Store(nil)
		return
	}
	observer.Store(&observerHolder{Observer: o})
}

func getObserver() Observer {
	h := observer.Load()
	if h == nil {
		return nil
	}
	return h.Observer
}

// Stats accumulates the queries issued while serving one request.
type Stats struct {
	mu            sync.Mutex
	QueryCount    int
	TotalDuration time.Duration
	ErrorCount    int
}

// Add records a single query execution.
func (s *Stats) Add(dur time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueryCount++
	s.TotalDuration += dur
	if err != nil {
		s.ErrorCount++
	}
}

// Snapshot returns the current totals.
func (s *Stats) Snapshot() (count int, total time.Duration, errs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.QueryCount, s.TotalDuration, s.ErrorCount
}

type statsKey struct{}
type methodKey struct{}

// WithStats returns a context carrying a fresh Stats.
func WithStats(ctx context.Context) context.Context {
	return context.WithValue(ctx, statsKey{}, &Stats{})
}

// FromContext returns the Stats attached by WithStats, if any.
func FromContext(ctx context.Context) (*Stats, bool) {
	s, ok := ctx.Value(statsKey{}).(*Stats)
	return s, ok
}

// WithHTTPMethod stores the request method for query labelling.
func WithHTTPMethod(ctx context.Context, method string) context.Context {
	if method == "" {
		return ctx
	}
	return context.WithValue(ctx, methodKey{}, method)
}

func httpMethodFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(methodKey{}).(string); ok {
		return v
	}
	return ""
}

func routePatternFromContext(ctx context.Context) string {
	if rc := chi.RouteContext(ctx); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// Record reports one finished query from the given database system.
func Record(ctx context.Context, system string, dur time.Duration, err error) {
	if s, ok := FromContext(ctx); ok {
		s.Add(dur, err)
	}

	obs := getObserver()
	if obs == nil || dur <= 0 {
		return
	}

	q := Query{
		System:   system,
		Method:   httpMethodFromContext(ctx),
		Route:    routePatternFromContext(ctx),
		Outcome:  OutcomeOK,
		Duration: dur,
	}
	if q.Method == "" {
		// background work such as delayed classification
		q.Method = "UNKNOWN"
	}
	if q.Route == "" {
		q.Route = "unknown"
	}
	if err != nil {
		q.Outcome = OutcomeError
	}
	obs.ObserveQuery(ctx, q)
}

// Middleware attaches the request method and a Stats to every request and
// copies the totals onto the request span once the handler returns.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithStats(WithHTTPMethod(r.Context(), r.Method))
		next.ServeHTTP(w, r.WithContext(ctx))

		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		s, _ := FromContext(ctx)
		count, total, errs := s.Snapshot()
		if count == 0 {
			return
		}
		span.SetAttributes(
			attribute.Int("db.query_count", count),
			attribute.Float64("db.total_duration_seconds", total.Seconds()),
			attribute.Int("db.error_count", errs),
		)
	})
}
