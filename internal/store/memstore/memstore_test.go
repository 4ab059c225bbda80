package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/smilecare/internal/account"
	"github.com/linnemanlabs/smilecare/internal/booking"
	"github.com/linnemanlabs/smilecare/internal/triage"
	"github.com/linnemanlabs/smilecare/internal/urgency"
)

var (
	_ triage.Store  = (*Store)(nil)
	_ booking.Store = (*Store)(nil)
	_ account.Store = (*Store)(nil)
)

func TestAssessment_PutAndGetCopies(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	a := &triage.Assessment{
		ID:        "a-1",
		PatientID: "p-1",
		Status:    triage.StatusAnswering,
		Current:   2,
		Answers:   urgency.AnswerSet{1: true, 2: false},
	}
	if err := s.PutAssessment(ctx, a); err != nil {
		t.Fatalf("PutAssessment: %v", err)
	}

	// mutating the caller's value after Put must not leak into the store
	a.Answers[1] = false

	got, ok, err := s.GetAssessment(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetAssessment: %v", err)
	}
	if !ok {
		t.Fatal("expected assessment to be found")
	}
	if !got.Answers[1] {
		t.Error("store shares the answers map with the caller")
	}

	got.Answers[2] = true
	again, _, _ := s.GetAssessment(ctx, "a-1")
	if again.Answers[2] {
		t.Error("Get returned shared state")
	}
}

func TestAssessment_GetMissing(t *testing.T) {
	t.Parallel()

	_, ok, err := New().GetAssessment(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetAssessment: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing ID")
	}
}

func TestAssessment_PutOverwrites(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.PutAssessment(ctx, &triage.Assessment{ID: "a-2", Status: triage.StatusAnalyzing})
	_ = s.PutAssessment(ctx, &triage.Assessment{ID: "a-2", Status: triage.StatusComplete, Result: &urgency.Result{Score: 9, Tier: urgency.High}})

	got, _, _ := s.GetAssessment(ctx, "a-2")
	if got.Status != triage.StatusComplete {
		t.Errorf("Status = %q, want %q", got.Status, triage.StatusComplete)
	}
	if got.Result == nil || got.Result.Tier != urgency.High {
		t.Errorf("Result = %+v, want high", got.Result)
	}
}

func TestAppointments_ListByPatientNewestFirst(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	for i, p := range []string{"p-1", "p-2", "p-1"} {
		draftID := fmt.Sprintf("draft-%d", i)
		_ = s.ConfirmDraft(ctx, &booking.Draft{ID: draftID, PatientID: p}, &booking.Appointment{
			ID:        fmt.Sprintf("appt-%d", i),
			PatientID: p,
			DraftID:   draftID,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	mine, err := s.ListAppointments(ctx, "p-1")
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "appt-2" || mine[1].ID != "appt-0" {
		t.Errorf("p-1 appointments = %v", ids(mine))
	}

	all, _ := s.ListAppointments(ctx, "")
	if len(all) != 3 || all[0].ID != "appt-2" {
		t.Errorf("all appointments = %v", ids(all))
	}

	none, _ := s.ListAppointments(ctx, "p-9")
	if none == nil || len(none) != 0 {
		t.Errorf("unknown patient appointments = %v, want empty non-nil", none)
	}
}

func TestConfirmDraft_Once(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	d := &booking.Draft{ID: "d-1", PatientID: "p-1", Step: booking.StepReview}
	_ = s.PutDraft(ctx, d)

	if err := s.ConfirmDraft(ctx, d, &booking.Appointment{ID: "a-1", PatientID: "p-1", DraftID: "d-1"}); err != nil {
		t.Fatalf("ConfirmDraft: %v", err)
	}
	got, _, _ := s.GetDraft(ctx, "d-1")
	if got.AppointmentID != "a-1" {
		t.Errorf("draft appointment_id = %q, want a-1", got.AppointmentID)
	}

	err := s.ConfirmDraft(ctx, d, &booking.Appointment{ID: "a-2", PatientID: "p-1", DraftID: "d-1"})
	if !errors.Is(err, booking.ErrAlreadyConfirmed) {
		t.Fatalf("second ConfirmDraft err = %v, want ErrAlreadyConfirmed", err)
	}
	all, _ := s.ListAppointments(ctx, "p-1")
	if len(all) != 1 || all[0].ID != "a-1" {
		t.Errorf("appointments = %v, want only a-1", ids(all))
	}
}

func TestDraft_PutAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	d := &booking.Draft{ID: "d-1", PatientID: "p-1", Step: booking.StepDate, DoctorID: 2, ServiceID: 1}
	_ = s.PutDraft(ctx, d)
	d.Step = booking.StepReview

	got, ok, err := s.GetDraft(ctx, "d-1")
	if err != nil || !ok {
		t.Fatalf("GetDraft ok=%v err=%v", ok, err)
	}
	if got.Step != booking.StepDate {
		t.Errorf("Step = %v, want %v", got.Step, booking.StepDate)
	}
}

func TestAccounts(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	a := &account.Account{ID: "acct-1", Name: "Sam", Email: "sam@example.com", PasswordHash: []byte("hash")}

	if err := s.CreateAccount(ctx, a); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := s.CreateAccount(ctx, &account.Account{ID: "acct-2", Email: "sam@example.com"}); !errors.Is(err, account.ErrEmailTaken) {
		t.Errorf("duplicate email err = %v, want ErrEmailTaken", err)
	}

	got, ok, err := s.GetAccountByEmail(ctx, "sam@example.com")
	if err != nil || !ok {
		t.Fatalf("GetAccountByEmail ok=%v err=%v", ok, err)
	}
	if got.ID != "acct-1" {
		t.Errorf("ID = %q, want acct-1", got.ID)
	}
	got.PasswordHash[0] = 'X'

	if err := s.SetDeviceToken(ctx, "acct-1", "tok"); err != nil {
		t.Fatalf("SetDeviceToken: %v", err)
	}
	if err := s.SetDeviceToken(ctx, "nope", "tok"); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("SetDeviceToken unknown err = %v, want ErrNotFound", err)
	}

	byID, _, _ := s.GetAccount(ctx, "acct-1")
	if byID.DeviceToken != "tok" {
		t.Errorf("DeviceToken = %q, want tok", byID.DeviceToken)
	}
	if string(byID.PasswordHash) != "hash" {
		t.Error("password hash shared with caller")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n * 2)

	for i := range n {
		id := fmt.Sprintf("id-%d", i)

		go func() {
			defer wg.Done()
			_ = s.PutAssessment(ctx, &triage.Assessment{ID: id, Answers: urgency.AnswerSet{1: true}})
			_ = s.ConfirmDraft(ctx, &booking.Draft{ID: id}, &booking.Appointment{ID: id, PatientID: "p", DraftID: id})
		}()

		go func() {
			defer wg.Done()
			_, _, _ = s.GetAssessment(ctx, id)
			_, _ = s.ListAppointments(ctx, "p")
		}()
	}

	wg.Wait()
}

func ids(as []*booking.Appointment) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}
