package assistant

import "time"

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderPatient Sender = "patient"
	SenderDoctor  Sender = "doctor"
)

// ChatMessage is one message in a thread.
type ChatMessage struct {
	Seq    int       `json:"seq"`
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Thread is a conversation between a patient and one doctor.
type Thread struct {
	ID         string        `json:"id"`
	PatientID  string        `json:"patient_id"`
	DoctorID   int           `json:"doctor_id"`
	DoctorName string        `json:"doctor_name"`
	Messages   []ChatMessage `json:"messages"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Clone returns a copy that shares no slices with t.
func (t *Thread) Clone() *Thread {
	out := *t
	out.Messages = append([]ChatMessage(nil), t.Messages...)
	return &out
}

func (t *Thread) append(sender Sender, text string, at time.Time) ChatMessage {
	m := ChatMessage{Seq: len(t.Messages) + 1, Sender: sender, Text: text, SentAt: at}
	t.Messages = append(t.Messages, m)
	return m
}
