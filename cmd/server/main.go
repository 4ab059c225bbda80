// SmileCare is the backend of a dental and skincare clinic app: symptom
// urgency checks, appointment booking, photo health checks, doctor chat and
// the care product shop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/opshttp"
	"github.com/linnemanlabs/go-core/prof"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	otelpyroscope "github.com/grafana/otel-profiling-go"

	"github.com/linnemanlabs/go-core/health"

	"github.com/linnemanlabs/go-core/httpmw"
	"github.com/linnemanlabs/go-core/httpserver"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/go-core/metrics"
	"github.com/linnemanlabs/go-core/otelx"
	v "github.com/linnemanlabs/go-core/version"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/smilecare/internal/account"
	"github.com/linnemanlabs/smilecare/internal/analysis"
	"github.com/linnemanlabs/smilecare/internal/assistant"
	"github.com/linnemanlabs/smilecare/internal/booking"
	sc "github.com/linnemanlabs/smilecare/internal/cfg"
	"github.com/linnemanlabs/smilecare/internal/clinicapi"
	"github.com/linnemanlabs/smilecare/internal/dbstats"
	"github.com/linnemanlabs/smilecare/internal/llm/claude"
	"github.com/linnemanlabs/smilecare/internal/notify/fcm"
	"github.com/linnemanlabs/smilecare/internal/notify/slack"
	"github.com/linnemanlabs/smilecare/internal/postgres"
	"github.com/linnemanlabs/smilecare/internal/shop"
	"github.com/linnemanlabs/smilecare/internal/store/memstore"
	"github.com/linnemanlabs/smilecare/internal/store/pgstore"
	"github.com/linnemanlabs/smilecare/internal/store/sqlitestore"
	"github.com/linnemanlabs/smilecare/internal/telegram"
	"github.com/linnemanlabs/smilecare/internal/tools"
	"github.com/linnemanlabs/smilecare/internal/triage"
)

const appName = "smilecare"
const component = "server"

// appStore is implemented by every store backend.
type appStore interface {
	triage.Store
	booking.Store
	account.Store
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set app name and component
	v.AppName = appName
	v.Component = component

	// Get build/version info
	vi := v.Get()

	// each package registers its own flags and options struct
	var (
		appCfg    sc.Config
		httpCfg   httpserver.Config
		httpmwCfg httpmw.Config
		logCfg    log.Config
		opsCfg    opshttp.Config
		profCfg   prof.Config
		traceCfg  otelx.Config
	)

	// register flags for each package, which will be parsed into the shared config struct
	appCfg.RegisterFlags(flag.CommandLine)
	httpCfg.RegisterFlags(flag.CommandLine)
	httpmwCfg.RegisterFlags(flag.CommandLine)
	logCfg.RegisterFlags(flag.CommandLine)
	opsCfg.RegisterFlags(flag.CommandLine)
	profCfg.RegisterFlags(flag.CommandLine)
	traceCfg.RegisterFlags(flag.CommandLine)
	var showVersion bool
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")

	// parse flags to get config values from cmdline, we check env vars next which do not override cmdline flags
	flag.Parse()
	if showVersion {
		fmt.Printf(
			"%s (%s) %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Component, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		return nil
	}

	// Fill in config values from environment variables with prefix SMILECARE_,
	// these do not override cmdline flags
	cfg.FillFromEnv(flag.CommandLine, "SMILECARE_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := errors.Join(
		appCfg.Validate(),
		httpCfg.Validate(),
		httpmwCfg.Validate(),
		logCfg.Validate(),
		opsCfg.Validate(),
		profCfg.Validate(),
		traceCfg.Validate(),
	); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// cross-cutting checks that only main can validate
	if appCfg.APIPort == opsCfg.Port {
		return fmt.Errorf("http and admin ports must differ (both %d)", appCfg.APIPort)
	}

	// initialize logger early
	lg, err := log.New(logCfg.ToOptions(v.AppName))
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	// create a logger with component field pre-filled for structured logging in this package
	L := lg.With("component", vi.Component)

	// add logger to context
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"go_version", vi.GoVersion,
		"http_port", appCfg.APIPort,
		"admin_port", opsCfg.Port,
		"store", appCfg.StoreKind(),
		"chat_assistant", appCfg.ClaudeAPIKey != "",
		"telegram_bot", appCfg.TelegramToken != "",
		"push_notifications", appCfg.FirebaseCredentialsFile != "",
		"slack_notifications", appCfg.SlackWebhookURL != "",
		"staff_endpoints", appCfg.StaffToken != "",
		"enable_pyroscope", profCfg.EnablePyroscope,
		"enable_tracing", traceCfg.EnableTracing,
		"otlp_endpoint", traceCfg.OTLPEndpoint,
		"trusted_proxy_hops", httpmwCfg.TrustedProxyHops,
	)

	// Setup pyroscope profiling early so we get profiles from the entire app lifetime
	profOpts := profCfg.ToOptions()
	profOpts.AppName = v.AppName
	profOpts.Tags = map[string]string{
		"app":       v.AppName,
		"component": v.Component,
		"version":   vi.Version,
		"commit":    vi.Commit,
		"build_id":  vi.BuildId,
	}
	stopProf, profErr := prof.Start(ctx, profOpts)
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", profCfg.PyroServer)
	}
	if stopProf != nil {
		defer stopProf()
	}

	// Setup otel for tracing
	traceOpts := traceCfg.ToOptions()
	traceOpts.Service = v.AppName
	traceOpts.Component = v.Component
	traceOpts.Version = v.Version

	shutdownOtelx, err := otelx.Init(ctx, traceOpts)
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	if shutdownOtelx != nil {
		defer func() { _ = shutdownOtelx(context.Background()) }()
	}

	// Label CPU profiles with the span that was running so traces link to flame graphs
	if profErr == nil && profCfg.EnablePyroscope {
		otel.SetTracerProvider(otelpyroscope.NewTracerProvider(otel.GetTracerProvider()))
	}

	// Setup metrics, we use our own metrics package for internal instrumentation
	var m = metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, component, &vi)
	m.SetProfilingActive(profErr == nil && profCfg.EnablePyroscope)

	// Initialize the store
	store, closeStore, err := openStore(ctx, L, &appCfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Register per-query DB duration histogram and wire the observer.
	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smilecare_db_query_duration_seconds",
		Help:    "Duration of individual database queries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"system", "method", "route", "outcome"})
	m.Registry().MustRegister(dbQueryDuration)

	dbstats.SetObserver(dbstats.ObserverFunc(func(_ context.Context, q dbstats.Query) {
		dbQueryDuration.WithLabelValues(q.System, q.Method, q.Route, q.Outcome).Observe(q.Duration.Seconds())
	}))

	// Accounts and session tokens
	tokens := account.NewTokens(appCfg.JWTSecret, account.DefaultTokenTTL)
	accountSvc := account.NewService(store, tokens, L)

	// Notifiers, each one is told about urgent results and confirmed appointments
	var (
		triageNotifiers  []triage.Notifier
		bookingNotifiers []booking.Notifier
	)
	if appCfg.SlackWebhookURL != "" {
		n := slack.New(appCfg.SlackWebhookURL, L)
		triageNotifiers = append(triageNotifiers, n)
		bookingNotifiers = append(bookingNotifiers, n)
		L.Info(ctx, "notifier enabled", "type", "slack")
	}
	if appCfg.FirebaseCredentialsFile != "" {
		n, err := fcm.New(ctx, appCfg.FirebaseCredentialsFile, accountSvc, L)
		if err != nil {
			return fmt.Errorf("fcm init: %w", err)
		}
		triageNotifiers = append(triageNotifiers, n)
		bookingNotifiers = append(bookingNotifiers, n)
		L.Info(ctx, "notifier enabled", "type", "fcm")
	}

	triageSvc := triage.NewService(store, L, triage.Options{
		AnalysisDelay: cosmeticDelay(appCfg.TriageDelay),
		Metrics:       triage.NewMetrics(m.Registry()),
		Notifiers:     triageNotifiers,
	})
	bookingSvc := booking.NewService(store, booking.NewMetrics(m.Registry()), L, bookingNotifiers...)
	analysisSvc := analysis.NewService(L, analysis.Options{
		StepInterval: cosmeticDelay(appCfg.PhotoStepInterval),
		Metrics:      analysis.NewMetrics(m.Registry()),
	})

	// Doctor chat replies come from Claude when a key is configured, canned otherwise
	chatMetrics := assistant.NewMetrics(m.Registry())
	var responder assistant.Responder
	if appCfg.ClaudeAPIKey != "" {
		provider := claude.New(appCfg.ClaudeAPIKey, appCfg.ClaudeModel)
		registry := tools.NewClinicRegistry()
		responder = assistant.NewEngine(provider, registry, L, assistant.EngineOptions{
			MaxToolRounds: appCfg.ChatMaxToolRounds,
			Metrics:       chatMetrics,
		})
		L.Info(ctx, "initialized LLM provider", "provider", "claude", "model", provider.Model(), "tools", registry.Names())
	}
	chatSvc := assistant.NewService(responder, L, chatMetrics)

	// Telegram quiz bot runs alongside the API until ctx is cancelled
	botDone := make(chan struct{})
	if appCfg.TelegramToken != "" {
		tgBot, err := telegram.New(appCfg.TelegramToken, triageSvc, L)
		if err != nil {
			return fmt.Errorf("telegram init: %w", err)
		}
		go func() {
			defer close(botDone)
			tgBot.Run(ctx)
		}()
	} else {
		close(botDone)
	}

	// setup toggle for server shutdown. this is used to fail readiness checks
	// during shutdown to drain connections from load balancer before killing the process.
	var shutdownGate health.ShutdownGate

	// setup readiness checks, currently just the shutdown gate
	readiness := health.All(
		shutdownGate.Probe(),
	)
	// liveness is always true if the app is able to respond
	liveness := health.Fixed(true, "")

	// Configure ops http server for metrics, health checks, pprof, etc
	opsOpts := opsCfg.ToOptions()
	opsOpts.Metrics = m.Handler()
	opsOpts.Health = liveness
	opsOpts.Readiness = readiness
	opsOpts.UseRecoverMW = true
	opsOpts.OnPanic = m.IncHttpPanic

	opsHTTPStop, err := opshttp.Start(ctx, L, opsOpts)
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		return err
	}
	defer func() {
		err := opsHTTPStop(context.Background())
		if err != nil {
			L.Error(ctx, err, "failed to stop ops http listener")
		}
	}()

	// setup main api chi router and middleware stack
	r := chi.NewRouter()

	// The mobile and web clients call from other origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.AllowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Compress text responses (we are JSON only for now)
	r.Use(middleware.Compress(5, "application/json"))

	// Annotate logger (and tracer if trace is recording) with http.route from chi route pattern
	r.Use(httpmw.AnnotateHTTPRoute)

	// Stash HTTP method and per-request query totals for DB metrics and spans.
	r.Use(dbstats.Middleware)

	// Access log middleware
	r.Use(httpmw.AccessLog())

	// Photo uploads need room, the JSON routes cap their own bodies
	r.Use(httpmw.MaxBody(1024 * 1024 * 10))

	// add health check endpoints to main listener
	r.Get("/-/healthy", health.HealthzHandler(liveness))
	r.Get("/-/ready", health.ReadyzHandler(readiness))

	// register api routes
	clinicAPI := clinicapi.New(L, clinicapi.Deps{
		Accounts:    accountSvc,
		Tokens:      tokens,
		Assessments: triageSvc,
		Bookings:    bookingSvc,
		Analyses:    analysisSvc,
		Chats:       chatSvc,
		Shop:        shop.NewService(),
		StaffToken:  appCfg.StaffToken,
	})
	clinicAPI.RegisterRoutes(r)

	// middleware stack for main listener, order matters these are wrappers, outermost sees raw request
	// first and is last to see response
	var h http.Handler = r

	// Request-scoped logging (inner so it sees trace_id, chi route, etc)
	h = httpmw.WithLogger(L)(h)

	// add trace-id and span-id headers to any requests with a recording trace
	h = httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id")(h)

	// otel instrumentation for automatic spans and trace context propagation
	h = otelhttp.NewHandler(h, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			// dont trace health/readiness checks
			return r.URL.Path != "/-/healthy" && r.URL.Path != "/-/ready"
		}),
		// AnnotateHTTPRoute will rename the span later to the final route pattern
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithPublicEndpointFn(func(_ *http.Request) bool { return true }),
	)

	// Metrics middleware for prometheus instrumentation
	h = m.Middleware(h)

	// Client IP resolution and spoofing protection middleware
	h = httpmw.ClientIPWithOptions(httpmw.ClientIPOptions{
		TrustedHops: httpmwCfg.TrustedProxyHops,
	})(h)

	// Request ID (outer so everything downstream sees it)
	h = httpmw.RequestID("X-Request-Id")(h)

	// Recovery middleware to recover and log panics and serve 500 response.
	h = httpmw.Recover(L, nil)(h)

	// Security headers outermost to ensure they are served on every response
	h = httpmw.SecurityHeaders(h)

	apiOpts, err := httpCfg.ToOptions()
	if err != nil {
		L.Error(ctx, err, "invalid http config")
		return err
	}

	apiHTTPStop, err := httpserver.Start(ctx, fmt.Sprintf(":%d", appCfg.APIPort), h, L, apiOpts)
	if err != nil {
		L.Error(ctx, err, "failed to start api http listener")
		return err
	}
	defer func() {
		err := apiHTTPStop(context.Background())
		if err != nil {
			L.Error(ctx, err, "failed to stop api http listener")
		}
	}()

	// Notify systemd that we started successfully if started under systemd
	if err := notifySystemd(); err != nil {
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	// Wait for ctrl+c / sigterm
	<-ctx.Done()

	L.Info(context.Background(), "shutdown signal received")

	// fail health checks to drain connections
	shutdownGate.Set("draining")
	L.Info(context.Background(), "shutdown gate closed")

	drainDuration := time.Duration(appCfg.DrainSeconds) * time.Second
	L.Info(context.Background(), "sleeping for drain period", "drain_seconds", appCfg.DrainSeconds)
	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(drainDuration):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	// Shutdown components with per-component budget sliced from total.
	// stopProf is synchronous and needs no context, so it's excluded.
	type stopFn struct {
		name string
		fn   func(context.Context) error
	}
	stopFns := []stopFn{
		{"api http server", apiHTTPStop},
		{"telegram bot", waitFor(botDone)},
		{"triage classifications", triageSvc.Shutdown},
		{"appointment notifications", bookingSvc.Shutdown},
		{"photo analyses", analysisSvc.Shutdown},
		{"ops http server", opsHTTPStop},
	}
	if shutdownOtelx != nil {
		stopFns = append(stopFns, stopFn{"otel", shutdownOtelx})
	}

	budget := time.Duration(appCfg.ShutdownBudgetSeconds) * time.Second
	perComponent := budget / time.Duration(len(stopFns))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	for _, s := range stopFns {
		cctx, ccancel := context.WithTimeout(shutdownCtx, perComponent)
		if err := s.fn(cctx); err != nil {
			L.Error(context.Background(), err, s.name+" shutdown")
		}
		ccancel()
	}

	if stopProf != nil {
		stopProf()
	}

	L.Info(context.Background(), "shutdown complete")
	return nil
}

// openStore opens the backend selected by the database settings. The
// returned close function is always safe to call.
func openStore(ctx context.Context, L log.Logger, c *sc.Config) (appStore, func(), error) {
	switch c.StoreKind() {
	case "postgres":
		pool, err := postgres.NewPool(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		s, err := pgstore.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pgstore init: %w", err)
		}
		L.Info(ctx, "using postgres store")
		return s, pool.Close, nil
	case "sqlite":
		s, err := sqlitestore.Open(ctx, sqlitestore.DSN(c.SQLitePath))
		if err != nil {
			return nil, nil, fmt.Errorf("sqlitestore init: %w", err)
		}
		L.Info(ctx, "using sqlite store", "path", c.SQLitePath)
		return s, func() {
			if err := s.Close(); err != nil {
				L.Error(context.Background(), err, "close sqlite store")
			}
		}, nil
	default:
		L.Info(ctx, "using in-memory store (no database configured)")
		return memstore.New(), func() {}, nil
	}
}

// cosmeticDelay maps a configured delay onto service options, where zero
// selects the default and a negative value disables the delay.
func cosmeticDelay(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

// waitFor adapts a done channel to a shutdown function.
func waitFor(done <-chan struct{}) func(context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func notifySystemd() error {
	// systemd will set NOTIFY_SOCKET to a unix socket path if we were started under systemd with type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set, skipping systemd notify")
	}
	conn, err := net.Dial("unixgram", addr) //nolint:gosec,noctx // addr is from NOTIFY_SOCKET set by systemd
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	return nil
}
