package postgres

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/smilecare/internal/dbstats"
)

const system = "postgres"

// slowQuery is the duration above which successful queries log at Info.
// Faster ones are dropped unless they fail.
const slowQuery = 0 * time.Millisecond

type queryKey struct{}

// queryState travels from TraceQueryStart to TraceQueryEnd.
type queryState struct {
	sql     string
	args    []any
	start   time.Time
	caller  string
	handler string
}

// loggingTracer wraps another pgx.QueryTracer (otelpgx) and adds timing,
// per-request stats and a structured log line for every query.
type loggingTracer struct {
	inner pgx.QueryTracer
}

func wrapQueryTracer(inner pgx.QueryTracer) pgx.QueryTracer {
	return loggingTracer{inner: inner}
}

func (t loggingTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	st := &queryState{sql: data.SQL, args: data.Args, start: time.Now()}
	st.caller, st.handler = findDBCallerAndHandler()

	// otelpgx opens the span first so the attributes below land on it
	if t.inner != nil {
		ctx = t.inner.TraceQueryStart(ctx, conn, data)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(st.attrs()...)
	}
	return context.WithValue(ctx, queryKey{}, st)
}

func (t loggingTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if t.inner != nil {
		t.inner.TraceQueryEnd(ctx, conn, data)
	}

	st, ok := ctx.Value(queryKey{}).(*queryState)
	if !ok {
		return
	}
	dur := time.Since(st.start)
	dbstats.Record(ctx, system, dur, data.Err)

	if data.Err == nil && dur < slowQuery {
		return
	}

	fields := []any{
		"db.system", system,
		"db.statement", st.sql,
		"db.args", st.args,
		"db.duration", dur.Seconds(),
	}
	if tag := strings.TrimSpace(data.CommandTag.String()); tag != "" {
		if op, _, _ := strings.Cut(tag, " "); op != "" {
			fields = append(fields, "db.operation.name", strings.ToUpper(op))
		}
		fields = append(fields, "pg.command_tag", tag, "db.rows", data.CommandTag.RowsAffected())
	}
	if st.caller != "" {
		fields = append(fields, "db.caller", st.caller)
	}
	if st.handler != "" {
		fields = append(fields, "db.handler", st.handler)
	}

	L := log.FromContext(ctx)
	if data.Err != nil {
		var pgErr *pgconn.PgError
		if errors.As(data.Err, &pgErr) {
			fields = append(fields, "db.error_code", pgErr.Code, "db.error_constraint", pgErr.ConstraintName)
		}
		L.Error(ctx, data.Err, "db query failed", fields...)
		return
	}
	L.Info(ctx, "db query", fields...)
}

func (st *queryState) attrs() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if st.caller != "" {
		attrs = append(attrs, attribute.String("db.caller", st.caller))
	}
	if st.handler != "" {
		attrs = append(attrs, attribute.String("db.handler", st.handler))
	}
	return attrs
}

// findDBCallerAndHandler walks the stack for the store method issuing the
// query (caller) and the first frame above the store layer (handler),
// usually a triage, booking or account service method.
func findDBCallerAndHandler() (caller, handler string) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		fr, more := frames.Next()
		fn := fr.Function

		switch {
		case fn == "":
		case isDriverFrame(fn):
		case caller == "":
			caller = shortenFuncName(fn)
		case !isStoreFrame(fn):
			return caller, shortenFuncName(fn)
		}
		if !more {
			return caller, handler
		}
	}
}

func isDriverFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") ||
		strings.Contains(fn, "github.com/jackc/pgx/v5") ||
		strings.Contains(fn, "github.com/exaring/otelpgx") ||
		strings.Contains(fn, "loggingTracer.TraceQuery")
}

func isStoreFrame(fn string) bool {
	return strings.Contains(fn, "github.com/linnemanlabs/smilecare/internal/postgres.") ||
		strings.Contains(fn, "github.com/linnemanlabs/smilecare/internal/store/")
}

// shortenFuncName drops the import path and package name, keeping the
// receiver and method.
func shortenFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 && i+1 < len(fn) {
		fn = fn[i+1:]
	}
	if dot := strings.Index(fn, "."); dot >= 0 && dot+1 < len(fn) {
		fn = fn[dot+1:]
	}
	return fn
}
