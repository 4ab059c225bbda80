package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/smilecare/internal/booking"
	"github.com/linnemanlabs/smilecare/internal/triage"
	"github.com/linnemanlabs/smilecare/internal/urgency"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func urgentAssessment() *triage.Assessment {
	return &triage.Assessment{
		ID:          "01JN123",
		PatientID:   "patient-7",
		Status:      triage.StatusComplete,
		Current:     8,
		Answers:     urgency.AnswerSet{1: true, 3: true, 4: true, 7: true},
		Result:      &urgency.Result{Score: 14, Tier: urgency.Urgent},
		CompletedAt: time.Date(2026, 10, 19, 14, 23, 0, 0, time.UTC),
	}
}

func blockText(b any) string {
	m := b.(map[string]any)
	if txt, ok := m["text"].(map[string]any); ok {
		return txt["text"].(string)
	}
	var parts []string
	for _, key := range []string{"fields", "elements"} {
		if items, ok := m[key].([]any); ok {
			for _, it := range items {
				parts = append(parts, it.(map[string]any)["text"].(string))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func TestNotifyUrgent_PostsToWebhook(t *testing.T) {
	t.Parallel()

	srv, got := captureServer(t, http.StatusOK)
	n := New(srv.URL, log.Nop())

	if err := n.NotifyUrgent(context.Background(), urgentAssessment()); err != nil {
		t.Fatalf("NotifyUrgent: %v", err)
	}

	blocks, ok := (*got)["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}
	// header, divider, fields, divider, symptoms, divider, context = 7 blocks
	if len(blocks) != 7 {
		t.Fatalf("blocks count = %d, want 7", len(blocks))
	}

	if h := blockText(blocks[0]); !strings.Contains(h, "\U0001f534") || !strings.Contains(h, urgency.Urgent.Info().Title) {
		t.Errorf("header = %q", h)
	}
	if f := blockText(blocks[2]); !strings.Contains(f, "14 / 23") || !strings.Contains(f, "patient-7") {
		t.Errorf("fields = %q", f)
	}
	symptoms := blockText(blocks[4])
	for _, id := range []int{1, 3, 4, 7} {
		q, _ := urgency.QuestionByID(id)
		if !strings.Contains(symptoms, q.Text) {
			t.Errorf("symptoms missing %q", q.Text)
		}
	}
	if q, _ := urgency.QuestionByID(2); strings.Contains(symptoms, q.Text) {
		t.Errorf("symptoms include unanswered %q", q.Text)
	}
	if c := blockText(blocks[6]); !strings.Contains(c, "assessment 01JN123") || !strings.Contains(c, "2026-10-19 14:23 UTC") {
		t.Errorf("context = %q", c)
	}
}

func TestNotifyAppointment_PostsToWebhook(t *testing.T) {
	t.Parallel()

	srv, got := captureServer(t, http.StatusOK)
	n := New(srv.URL, log.Nop())

	appt := &booking.Appointment{
		ID: "01APPT", PatientID: "patient-7", DoctorName: "Dr. Ahmed Hassan",
		ServiceName: "Acne treatment", Date: "2026-10-21", Time: "10:30 AM",
		TotalCost: 250, Status: booking.StatusConfirmed,
		CreatedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
	if err := n.NotifyAppointment(context.Background(), appt); err != nil {
		t.Fatalf("NotifyAppointment: %v", err)
	}

	blocks := (*got)["blocks"].([]any)
	if len(blocks) != 5 {
		t.Fatalf("blocks count = %d, want 5", len(blocks))
	}
	if h := blockText(blocks[0]); !strings.Contains(h, "Dr. Ahmed Hassan") {
		t.Errorf("header = %q", h)
	}
	f := blockText(blocks[2])
	for _, want := range []string{"Acne treatment", "2026-10-21", "10:30 AM", "$250", "confirmed"} {
		if !strings.Contains(f, want) {
			t.Errorf("fields missing %q in %q", want, f)
		}
	}
}

func TestNotify_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("", log.Nop())
	if err := n.NotifyUrgent(context.Background(), &triage.Assessment{}); err != nil {
		t.Fatalf("NotifyUrgent with empty URL should be no-op, got: %v", err)
	}
	if err := n.NotifyAppointment(context.Background(), &booking.Appointment{}); err != nil {
		t.Fatalf("NotifyAppointment with empty URL should be no-op, got: %v", err)
	}
}

func TestNotify_WebhookError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token"))
	}))
	defer srv.Close()

	err := New(srv.URL, log.Nop()).NotifyUrgent(context.Background(), urgentAssessment())
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "invalid_token") {
		t.Fatalf("err = %v, want 403 with body", err)
	}
}

func TestFields_EscapesMrkdwn(t *testing.T) {
	t.Parallel()

	f := fields("Patient", "<@U123> & co")
	text := f["fields"].([]map[string]any)[0]["text"].(string)
	if text != "*Patient:* &lt;@U123&gt; &amp; co" {
		t.Errorf("text = %q", text)
	}
}

func TestTierEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tier urgency.Tier
		want string
	}{
		{urgency.Urgent, "\U0001f534"},
		{urgency.High, "\U0001f7e0"},
		{urgency.Medium, "\U0001f7e1"},
		{urgency.Low, "\U0001f7e2"},
	}
	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			t.Parallel()
			if got := tierEmoji(tt.tier); got != tt.want {
				t.Errorf("tierEmoji(%s) = %q, want %q", tt.tier, got, tt.want)
			}
		})
	}
}

func TestSymptomList_Empty(t *testing.T) {
	t.Parallel()

	if got := symptomList(urgency.AnswerSet{1: false}); got != "_No symptoms reported._" {
		t.Errorf("symptomList = %q", got)
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("patient-1", "Dr. Sarah Johnson", "Acne treatment", "9:00 AM")
	f.Add("", "", "", "")
	f.Add("<@U123> mention", "*bold* _italic_", "~strike~", "```code```")
	f.Add("p\x00\x01", "doc\nline", "svc\ttab", strings.Repeat("A", 5000))

	f.Fuzz(func(t *testing.T, patient, doctor, service, slot string) {
		msgs := []map[string]any{
			buildAppointmentMessage(&booking.Appointment{
				ID: "fuzz", PatientID: patient, DoctorName: doctor, ServiceName: service, Time: slot,
			}),
			buildUrgentMessage(&triage.Assessment{ID: "fuzz", PatientID: patient}),
		}
		for _, msg := range msgs {
			data, err := json.Marshal(msg)
			if err != nil {
				t.Fatalf("message not marshalable: %v", err)
			}
			var decoded map[string]any
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("message did not round-trip: %v", err)
			}
		}
	})
}
