package booking

import "context"

// Store is the persistence interface for drafts and appointments.
type Store interface {
	GetDraft(ctx context.Context, id string) (*Draft, bool, error)
	PutDraft(ctx context.Context, d *Draft) error
	GetAppointment(ctx context.Context, id string) (*Appointment, bool, error)
	// ConfirmDraft persists the confirmed draft and its appointment
	// atomically. It returns ErrAlreadyConfirmed when the stored draft
	// already has an appointment.
	ConfirmDraft(ctx context.Context, d *Draft, a *Appointment) error
	// ListAppointments returns a patient's appointments, newest first. An
	// empty patientID lists every appointment.
	ListAppointments(ctx context.Context, patientID string) ([]*Appointment, error)
}

// Notifier is told about every confirmed appointment.
type Notifier interface {
	NotifyAppointment(ctx context.Context, a *Appointment) error
}
