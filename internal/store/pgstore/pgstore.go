// Package pgstore provides a PostgreSQL implementation of the triage,
// booking and account stores.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/smilecare/internal/account"
	"github.com/linnemanlabs/smilecare/internal/booking"
	"github.com/linnemanlabs/smilecare/internal/triage"
	"github.com/linnemanlabs/smilecare/internal/urgency"
)

// uniqueViolation is the SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

var tracer = otel.Tracer("github.com/linnemanlabs/smilecare/internal/store/pgstore")

//go:embed schema.sql
var schema string

// Store persists SmileCare records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store. The caller owns
// the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pgstore."+name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

const assessmentColumns = `id, patient_id, status, current_idx, answers, score, tier, created_at, completed_at`

// GetAssessment retrieves an assessment by ID.
func (s *Store) GetAssessment(ctx context.Context, id string) (*triage.Assessment, bool, error) {
	ctx, span := startSpan(ctx, "GetAssessment", "SELECT")
	defer span.End()

	var (
		a           triage.Assessment
		status      string
		answersJSON []byte
		score       *int
		tier        *string
		completedAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id).Scan(
		&a.ID, &a.PatientID, &status, &a.Current, &answersJSON, &score, &tier, &a.CreatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan assessment: %w", err))
	}

	a.Status = triage.Status(status)
	if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
		return nil, false, fail(span, fmt.Errorf("unmarshal answers: %w", err))
	}
	if completedAt != nil {
		a.CompletedAt = *completedAt
	}
	if score != nil && tier != nil {
		t, err := urgency.ParseTier(*tier)
		if err != nil {
			return nil, false, fail(span, err)
		}
		a.Result = &urgency.Result{Score: *score, Tier: t}
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
		score       *int
		tier        *string
		completedAt *time.Time
	)
	if a.Result != nil {
		sc, tn := a.Result.Score, a.Result.Tier.String()
		score, tier = &sc, &tn
	}
	if !a.CompletedAt.IsZero() {
		completedAt = &a.CompletedAt
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO assessments (`+assessmentColumns+`)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (id) DO UPDATE SET
		status       = EXCLUDED.status,
		current_idx  = EXCLUDED.current_idx,
		answers      = EXCLUDED.answers,
		score        = EXCLUDED.score,
		tier         = EXCLUDED.tier,
		completed_at = EXCLUDED.completed_at`,
		a.ID, a.PatientID, string(a.Status), a.Current, answersJSON, score, tier, a.CreatedAt, completedAt,
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

	var d booking.Draft
	var step int
	err := s.pool.QueryRow(ctx, `SELECT `+draftColumns+` FROM booking_drafts WHERE id = $1`, id).Scan(
		&d.ID, &d.PatientID, &step, &d.DoctorID, &d.ServiceID, &d.Date, &d.Time, &d.AppointmentID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan draft: %w", err))
	}
	d.Step = booking.Step(step)
	return &d, true, nil
}

// PutDraft inserts or updates a booking draft.
func (s *Store) PutDraft(ctx context.Context, d *booking.Draft) error {
	ctx, span := startSpan(ctx, "PutDraft", "UPSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx, `INSERT INTO booking_drafts (`+draftColumns+`)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (id) DO UPDATE SET
		step           = EXCLUDED.step,
		doctor_id      = EXCLUDED.doctor_id,
		service_id     = EXCLUDED.service_id,
		booking_date   = EXCLUDED.booking_date,
		booking_time   = EXCLUDED.booking_time,
		appointment_id = EXCLUDED.appointment_id,
		updated_at     = EXCLUDED.updated_at`,
		d.ID, d.PatientID, int(d.Step), d.DoctorID, d.ServiceID, d.Date, d.Time, d.AppointmentID, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert draft: %w", err))
	}
	return nil
}

const appointmentColumns = `id, patient_id, draft_id, doctor_id, doctor_name, service_id, service_name,
	booking_date, booking_time, total_cost, status, created_at`

// GetAppointment retrieves an appointment by ID.
func (s *Store) GetAppointment(ctx context.Context, id string) (*booking.Appointment, bool, error) {
	ctx, span := startSpan(ctx, "GetAppointment", "SELECT")
	defer span.End()

	a, err := scanAppointment(s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, err)
	}
	return a, true, nil
}

// ConfirmDraft marks the draft confirmed and inserts its appointment in one
// transaction. A draft that already has an appointment yields
// booking.ErrAlreadyConfirmed and nothing is written.
func (s *Store) ConfirmDraft(ctx context.Context, d *booking.Draft, a *booking.Appointment) error {
	ctx, span := startSpan(ctx, "ConfirmDraft", "TRANSACTION")
	defer span.End()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE booking_drafts
		SET step = $2, appointment_id = $3, updated_at = $4
		WHERE id = $1 AND appointment_id = ''`,
			d.ID, int(d.Step), a.ID, d.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update draft: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return booking.ErrAlreadyConfirmed
		}

		_, err = tx.Exec(ctx, `INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			a.ID, a.PatientID, a.DraftID, a.DoctorID, a.DoctorName, a.ServiceID, a.ServiceName,
			a.Date, a.Time, a.TotalCost, string(a.Status), a.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return booking.ErrAlreadyConfirmed
			}
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, booking.ErrAlreadyConfirmed) {
			return err
		}
		return fail(span, err)
	}
	return nil
}

// ListAppointments returns a patient's appointments, newest first. An empty
// patientID lists all of them.
func (s *Store) ListAppointments(ctx context.Context, patientID string) ([]*booking.Appointment, error) {
	ctx, span := startSpan(ctx, "ListAppointments", "SELECT")
	defer span.End()

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	args := []any{}
	if patientID != "" {
		query += ` WHERE patient_id = $1`
		args = append(args, patientID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query appointments: %w", err))
	}
	defer rows.Close()

	out := make([]*booking.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fail(span, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate appointments: %w", err))
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*booking.Appointment, error) {
	var a booking.Appointment
	var status string
	err := row.Scan(
		&a.ID, &a.PatientID, &a.DraftID, &a.DoctorID, &a.DoctorName, &a.ServiceID, &a.ServiceName,
		&a.Date, &a.Time, &a.TotalCost, &status, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan appointment: %w", err)
	}
	a.Status = booking.AppointmentStatus(status)
	return &a, nil
}

const accountColumns = `id, name, email, password_hash, device_token, created_at`

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (*account.Account, bool, error) {
	ctx, span := startSpan(ctx, "GetAccount", "SELECT")
	defer span.End()
	return s.getAccount(ctx, span, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetAccountByEmail retrieves an account by its normalized email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*account.Account, bool, error) {
	ctx, span := startSpan(ctx, "GetAccountByEmail", "SELECT")
	defer span.End()
	return s.getAccount(ctx, span, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (s *Store) getAccount(ctx context.Context, span trace.Span, query string, arg string) (*account.Account, bool, error) {
	var a account.Account
	err := s.pool.QueryRow(ctx, query, arg).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.DeviceToken, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, fmt.Errorf("scan account: %w", err))
	}
	return &a, true, nil
}

// CreateAccount inserts a new account.
func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	ctx, span := startSpan(ctx, "CreateAccount", "INSERT")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (email) DO NOTHING`,
		a.ID, a.Name, a.Email, a.PasswordHash, a.DeviceToken, a.CreatedAt,
	)
	if err != nil {
		return fail(span, fmt.Errorf("insert account: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return account.ErrEmailTaken
	}
	return nil
}

// SetDeviceToken records the push token for an account.
func (s *Store) SetDeviceToken(ctx context.Context, id, token string) error {
	ctx, span := startSpan(ctx, "SetDeviceToken", "UPDATE")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET device_token = $2 WHERE id = $1`, id, token)
	if err != nil {
		return fail(span, fmt.Errorf("update device token: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return account.ErrNotFound
	}
	return nil
}
