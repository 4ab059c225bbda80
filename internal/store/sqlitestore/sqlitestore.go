// Package sqlitestore provides an embedded SQLite implementation of the
// triage, booking and account stores for single-node deployments.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/linnemanlabs/smilecare/internal/account"
	"github.com/linnemanlabs/smilecare/internal/booking"
	"github.com/linnemanlabs/smilecare/internal/dbstats"
	"github.com/linnemanlabs/smilecare/internal/triage"
	"github.com/linnemanlabs/smilecare/internal/urgency"
)

const dsnParams = "?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// DefaultDSN is used when Open is given an empty DSN.
const DefaultDSN = "file:smilecare.db" + dsnParams

// DSN returns the connection string for the database file at path.
func DSN(path string) string {
	return "file:" + path + dsnParams
}

var tracer = otel.Tracer("github.com/linnemanlabs/smilecare/internal/store/sqlitestore")

//go:embed schema.sql
var schema string

// Store persists SmileCare records in a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens the database, applies the schema and returns a ready Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// sqlite allows one writer; serializing avoids SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// timedSpan reports the operation to dbstats when it ends.
type timedSpan struct {
	trace.Span
	ctx   context.Context
	start time.Time
	err   error
}

func (s *timedSpan) RecordError(err error, opts ...trace.EventOption) {
	s.err = err
	s.Span.RecordError(err, opts...)
}

func (s *timedSpan) End(opts ...trace.SpanEndOption) {
	dbstats.Record(s.ctx, "sqlite", time.Since(s.start), s.err)
	s.Span.End(opts...)
}

func startSpan(ctx context.Context, name, op string) (context.Context, *timedSpan) {
	ctx, span := tracer.Start(ctx, "sqlitestore."+name, trace.WithAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation.name", op),
	))
	return ctx, &timedSpan{Span: span, ctx: ctx, start: time.Now()}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func toUnix(t time.Time) int64 { return t.UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

const assessmentColumns = `id, patient_id, status, current_idx, answers_json, score, tier, created_at, completed_at`

// GetAssessment retrieves an assessment by ID.
func (s *Store) GetAssessment(ctx context.Context, id string) (*triage.Assessment, bool, error) {
	ctx, span := startSpan(ctx, "GetAssessment", "SELECT")
	defer span.End()

	var (
		a           triage.Assessment
		status      string
		answersJSON string
		score       sql.NullInt64
		tier        sql.NullString
		createdAt   int64
		completedAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+assessmentColumns+` FROM assessments WHERE id = ?`, id).Scan(
		&a.ID, &a.PatientID, &status, &a.Current, &answersJSON, &score, &tier, &createdAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan assessment: %w", err))
	}

	a.Status = triage.Status(status)
	a.CreatedAt = fromUnix(createdAt)
	if completedAt.Valid {
		a.CompletedAt = fromUnix(completedAt.Int64)
	}
	if err := json.Unmarshal([]byte(answersJSON), &a.Answers); err != nil {
		return nil, false, fail(span, fmt.Errorf("unmarshal answers: %w", err))
	}
	if score.Valid && tier.Valid {
		t, err := urgency.ParseTier(tier.String)
		if err != nil {
			return nil, false, fail(span, err)
		}
		a.Result = &urgency.Result{Score: int(score.Int64), Tier: t}
	}
	return &a, true, nil
}

// PutAssessment inserts or updates an assessment.
func (s *Store) PutAssessment(ctx context.Context, a *triage.Assessment) error {
	ctx, span := startSpan(ctx, "PutAssessment", "UPSERT")
	defer span.End()

	answers := a.Answers
	if answers == nil {
		answers = urgency.AnswerSet{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fail(span, fmt.Errorf("marshal answers: %w", err))
	}

	var (
		score       sql.NullInt64
		tier        sql.NullString
		completedAt sql.NullInt64
	)
	if a.Result != nil {
		score = sql.NullInt64{Int64: int64(a.Result.Score), Valid: true}
		tier = sql.NullString{String: a.Result.Tier.String(), Valid: true}
	}
	if !a.CompletedAt.IsZero() {
		completedAt = sql.NullInt64{Int64: toUnix(a.CompletedAt), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO assessments (`+assessmentColumns+`)
	VALUES (?,?,?,?,?,?,?,?,?)
	ON CONFLICT (id) DO UPDATE SET
		status       = excluded.status,
		current_idx  = excluded.current_idx,
		answers_json = excluded.answers_json,
		score        = excluded.score,
		tier         = excluded.tier,
		completed_at = excluded.completed_at`,
		a.ID, a.PatientID, string(a.Status), a.Current, string(answersJSON), score, tier, toUnix(a.CreatedAt), completedAt,
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert assessment: %w", err))
	}
	return nil
}

const draftColumns = `id, patient_id, step, doctor_id, service_id, booking_date, booking_time, appointment_id, created_at, updated_at`

// GetDraft retrieves a booking draft by ID.
func (s *Store) GetDraft(ctx context.Context, id string) (*booking.Draft, bool, error) {
	ctx, span := startSpan(ctx, "GetDraft", "SELECT")
	defer span.End()

	var (
		d                    booking.Draft
		step                 int
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM booking_drafts WHERE id = ?`, id).Scan(
		&d.ID, &d.PatientID, &step, &d.DoctorID, &d.ServiceID, &d.Date, &d.Time, &d.AppointmentID, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan draft: %w", err))
	}
	d.Step = booking.Step(step)
	d.CreatedAt = fromUnix(createdAt)
	d.UpdatedAt = fromUnix(updatedAt)
	return &d, true, nil
}

// PutDraft inserts or updates a booking draft.
func (s *Store) PutDraft(ctx context.Context, d *booking.Draft) error {
	ctx, span := startSpan(ctx, "PutDraft", "UPSERT")
	defer span.End()

	_, err := s.db.ExecContext(ctx, `INSERT INTO booking_drafts (`+draftColumns+`)
	VALUES (?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT (id) DO UPDATE SET
		step           = excluded.step,
		doctor_id      = excluded.doctor_id,
		service_id     = excluded.service_id,
		booking_date   = excluded.booking_date,
		booking_time   = excluded.booking_time,
		appointment_id = excluded.appointment_id,
		updated_at     = excluded.updated_at`,
		d.ID, d.PatientID, int(d.Step), d.DoctorID, d.ServiceID, d.Date, d.Time, d.AppointmentID,
		toUnix(d.CreatedAt), toUnix(d.UpdatedAt),
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert draft: %w", err))
	}
	return nil
}

const appointmentColumns = `id, patient_id, draft_id, doctor_id, doctor_name, service_id, service_name,
	booking_date, booking_time, total_cost, status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row scanner) (*booking.Appointment, error) {
	var (
		a         booking.Appointment
		status    string
		createdAt int64
	)
	err := row.Scan(
		&a.ID, &a.PatientID, &a.DraftID, &a.DoctorID, &a.DoctorName, &a.ServiceID, &a.ServiceName,
		&a.Date, &a.Time, &a.TotalCost, &status, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = booking.AppointmentStatus(status)
	a.CreatedAt = fromUnix(createdAt)
	return &a, nil
}

// GetAppointment retrieves an appointment by ID.
func (s *Store) GetAppointment(ctx context.Context, id string) (*booking.Appointment, bool, error) {
	ctx, span := startSpan(ctx, "GetAppointment", "SELECT")
	defer span.End()

	a, err := scanAppointment(s.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan appointment: %w", err))
	}
	return a, true, nil
}

// ConfirmDraft marks the draft confirmed and inserts its appointment in one
// transaction. A draft that already has an appointment yields
// booking.ErrAlreadyConfirmed and nothing is written.
func (s *Store) ConfirmDraft(ctx context.Context, d *booking.Draft, a *booking.Appointment) error {
	ctx, span := startSpan(ctx, "ConfirmDraft", "TRANSACTION")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(span, fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE booking_drafts
	SET step = ?, appointment_id = ?, updated_at = ?
	WHERE id = ? AND appointment_id = ''`,
		int(d.Step), a.ID, toUnix(d.UpdatedAt), d.ID,
	)
	if err != nil {
		return fail(span, fmt.Errorf("update draft: %w", err))
	}
	if n, err := res.RowsAffected(); err != nil {
		return fail(span, fmt.Errorf("rows affected: %w", err))
	} else if n != 1 {
		return booking.ErrAlreadyConfirmed
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO appointments (`+appointmentColumns+`)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.PatientID, a.DraftID, a.DoctorID, a.DoctorName, a.ServiceID, a.ServiceName,
		a.Date, a.Time, a.TotalCost, string(a.Status), toUnix(a.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return booking.ErrAlreadyConfirmed
		}
		return fail(span, fmt.Errorf("insert appointment: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return fail(span, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// ListAppointments returns a patient's appointments, newest first. An empty
// patientID lists all of them.
func (s *Store) ListAppointments(ctx context.Context, patientID string) ([]*booking.Appointment, error) {
	ctx, span := startSpan(ctx, "ListAppointments", "SELECT")
	defer span.End()

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	var args []any
	if patientID != "" {
		query += ` WHERE patient_id = ?`
		args = append(args, patientID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query appointments: %w", err))
	}
	defer func() { _ = rows.Close() }()

	out := make([]*booking.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fail(span, fmt.Errorf("scan appointment: %w", err))
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate appointments: %w", err))
	}
	return out, nil
}

const accountColumns = `id, name, email, password_hash, device_token, created_at`

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (*account.Account, bool, error) {
	ctx, span := startSpan(ctx, "GetAccount", "SELECT")
	defer span.End()
	return s.getAccount(ctx, span, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

// GetAccountByEmail retrieves an account by its normalized email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*account.Account, bool, error) {
	ctx, span := startSpan(ctx, "GetAccountByEmail", "SELECT")
	defer span.End()
	return s.getAccount(ctx, span, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

func (s *Store) getAccount(ctx context.Context, span trace.Span, query, arg string) (*account.Account, bool, error) {
	var (
		a         account.Account
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.DeviceToken, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan account: %w", err))
	}
	a.CreatedAt = fromUnix(createdAt)
	return &a, true, nil
}

// CreateAccount inserts a new account.
func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	ctx, span := startSpan(ctx, "CreateAccount", "INSERT")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
	VALUES (?,?,?,?,?,?)
	ON CONFLICT (email) DO NOTHING`,
		a.ID, a.Name, a.Email, a.PasswordHash, a.DeviceToken, toUnix(a.CreatedAt),
	)
	if err != nil {
		return fail(span, fmt.Errorf("insert account: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.ErrEmailTaken
	}
	return nil
}

// SetDeviceToken records the push token for an account.
func (s *Store) SetDeviceToken(ctx context.Context, id, token string) error {
	ctx, span := startSpan(ctx, "SetDeviceToken", "UPDATE")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET device_token = ? WHERE id = ?`, token, id)
	if err != nil {
		return fail(span, fmt.Errorf("update device token: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.ErrNotFound
	}
	return nil
}
