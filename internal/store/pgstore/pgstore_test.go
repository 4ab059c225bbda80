package pgstore_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/smilecare/internal/account"
	"github.com/linnemanlabs/smilecare/internal/booking"
	"github.com/linnemanlabs/smilecare/internal/postgres"
	"github.com/linnemanlabs/smilecare/internal/store/pgstore"
	"github.com/linnemanlabs/smilecare/internal/triage"
	"github.com/linnemanlabs/smilecare/internal/urgency"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("SMILECARE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SMILECARE_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func TestAssessmentRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	a := &triage.Assessment{
		ID:        ulid.Make().String(),
		PatientID: "p-pg",
		Status:    triage.StatusAnswering,
		Current:   2,
		Answers:   urgency.AnswerSet{1: true, 2: false},
		CreatedAt: now,
	}
	if err := s.PutAssessment(ctx, a); err != nil {
		t.Fatalf("PutAssessment: %v", err)
	}

	got, ok, err := s.GetAssessment(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("GetAssessment ok=%v err=%v", ok, err)
	}
	if got.Current != 2 || !got.Answers[1] || got.Answers[2] || got.Result != nil {
		t.Errorf("got %+v", got)
	}

	a.Status = triage.StatusComplete
	a.Current = 8
	a.Result = &urgency.Result{Score: 12, Tier: urgency.Urgent}
	a.CompletedAt = now.Add(time.Second)
	if err := s.PutAssessment(ctx, a); err != nil {
		t.Fatalf("PutAssessment update: %v", err)
	}

	got, _, _ = s.GetAssessment(ctx, a.ID)
	if got.Status != triage.StatusComplete || got.Result == nil || got.Result.Tier != urgency.Urgent {
		t.Errorf("after update got %+v", got)
	}
	if !got.CompletedAt.Equal(a.CompletedAt) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, a.CompletedAt)
	}

	if _, ok, err := s.GetAssessment(ctx, "nonexistent"); err != nil || ok {
		t.Errorf("missing assessment ok=%v err=%v", ok, err)
	}
}

func TestDraftAndAppointments(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Microsecond).UTC()
	patient := "p-" + ulid.Make().String()

	d := &booking.Draft{ID: ulid.Make().String(), PatientID: patient, Step: booking.StepTime, DoctorID: 1, ServiceID: 2, Date: "2026-10-20", CreatedAt: now, UpdatedAt: now}
	if err := s.PutDraft(ctx, d); err != nil {
		t.Fatalf("PutDraft: %v", err)
	}
	got, ok, err := s.GetDraft(ctx, d.ID)
	if err != nil || !ok {
		t.Fatalf("GetDraft ok=%v err=%v", ok, err)
	}
	if got.Step != booking.StepTime || got.Date != "2026-10-20" {
		t.Errorf("draft = %+v", got)
	}

	newAppt := func(draftID string, at time.Time) *booking.Appointment {
		return &booking.Appointment{
			ID: ulid.Make().String(), PatientID: patient, DraftID: draftID,
			DoctorID: 1, DoctorName: "Dr. Sarah Johnson", ServiceID: 2, ServiceName: "Acne treatment",
			Date: "2026-10-20", Time: "9:00 AM", TotalCost: 200, Status: booking.StatusConfirmed,
			CreatedAt: at,
		}
	}

	d.Step = booking.StepReview
	first := newAppt(d.ID, now)
	if err := s.ConfirmDraft(ctx, d, first); err != nil {
		t.Fatalf("ConfirmDraft: %v", err)
	}
	if err := s.ConfirmDraft(ctx, d, newAppt(d.ID, now)); !errors.Is(err, booking.ErrAlreadyConfirmed) {
		t.Fatalf("second ConfirmDraft err = %v, want ErrAlreadyConfirmed", err)
	}
	got, _, _ = s.GetDraft(ctx, d.ID)
	if got.AppointmentID != first.ID || got.Step != booking.StepReview {
		t.Errorf("confirmed draft = %+v", got)
	}

	d2 := &booking.Draft{ID: ulid.Make().String(), PatientID: patient, Step: booking.StepReview, CreatedAt: now, UpdatedAt: now}
	if err := s.PutDraft(ctx, d2); err != nil {
		t.Fatalf("PutDraft: %v", err)
	}
	if err := s.ConfirmDraft(ctx, d2, newAppt(d2.ID, now.Add(time.Minute))); err != nil {
		t.Fatalf("ConfirmDraft second draft: %v", err)
	}

	list, err := s.ListAppointments(ctx, patient)
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if len(list) != 2 || !list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Errorf("appointments = %+v", list)
	}
}

func TestAccounts(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	email := ulid.Make().String() + "@example.com"

	a := &account.Account{ID: ulid.Make().String(), Name: "Sam", Email: email, PasswordHash: []byte("hash"), CreatedAt: time.Now().UTC()}
	if err := s.CreateAccount(ctx, a); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	dup := &account.Account{ID: ulid.Make().String(), Name: "Other", Email: email, PasswordHash: []byte("x"), CreatedAt: time.Now().UTC()}
	if err := s.CreateAccount(ctx, dup); !errors.Is(err, account.ErrEmailTaken) {
		t.Errorf("duplicate CreateAccount err = %v, want ErrEmailTaken", err)
	}

	if err := s.SetDeviceToken(ctx, a.ID, "tok"); err != nil {
		t.Fatalf("SetDeviceToken: %v", err)
	}
	if err := s.SetDeviceToken(ctx, "missing", "tok"); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("SetDeviceToken missing err = %v, want ErrNotFound", err)
	}

	got, ok, err := s.GetAccountByEmail(ctx, email)
	if err != nil || !ok {
		t.Fatalf("GetAccountByEmail ok=%v err=%v", ok, err)
	}
	if got.ID != a.ID || got.DeviceToken != "tok" || string(got.PasswordHash) != "hash" {
		t.Errorf("account = %+v", got)
	}
}
