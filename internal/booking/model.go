// Package booking implements the appointment wizard. A Draft walks a patient
// through doctor, service, date and time selection before Confirm turns it
// into an Appointment priced from the catalog.
package booking

import (
	"errors"
	"time"
)

var (
	// ErrIncompleteSelection is returned by Confirm when any of doctor,
	// service, date or time has not been selected.
	ErrIncompleteSelection = errors.New("selection incomplete")

	// ErrInvalidDate is returned for dates outside the booking window.
	ErrInvalidDate = errors.New("date is not bookable")

	// ErrInvalidTime is returned for times that are not catalog time slots.
	ErrInvalidTime = errors.New("time is not a bookable slot")

	// ErrAlreadyConfirmed is returned when a confirmed draft is modified.
	ErrAlreadyConfirmed = errors.New("booking already confirmed")
)

// Step is the wizard screen a draft is on.
type Step int

const (
	StepDoctor Step = iota + 1
	StepService
	StepDate
	StepTime
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepDoctor:
		return "doctor"
	case StepService:
		return "service"
	case StepDate:
		return "date"
	case StepTime:
		return "time"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}

// AppointmentStatus tracks an appointment after confirmation.
type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Draft is the explicit wizard state. Zero selections mean "not chosen yet".
type Draft struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patient_id"`
	Step          Step      `json:"step"`
	DoctorID      int       `json:"doctor_id,omitempty"`
	ServiceID     int       `json:"service_id,omitempty"`
	Date          string    `json:"date,omitempty"`
	Time          string    `json:"time,omitempty"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Appointment is a confirmed booking.
type Appointment struct {
	ID          string            `json:"id"`
	PatientID   string            `json:"patient_id"`
	DraftID     string            `json:"draft_id"`
	DoctorID    int               `json:"doctor_id"`
	DoctorName  string            `json:"doctor_name"`
	ServiceID   int               `json:"service_id"`
	ServiceName string            `json:"service_name"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	TotalCost   int               `json:"total_cost"`
	Status      AppointmentStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}
