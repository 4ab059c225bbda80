package booking

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/smilecare/internal/catalog"
)

// NewDraft returns an empty draft on the doctor step.
func NewDraft(patientID string, now time.Time) *Draft {
	return &Draft{
		ID:        ulid.Make().String(),
		PatientID: patientID,
		Step:      StepDoctor,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SelectDoctor records the doctor and moves to the service step.
func (d *Draft) SelectDoctor(id int) error {
	if err := d.editable(); err != nil {
		return err
	}
	if _, err := catalog.DoctorByID(id); err != nil {
		return fmt.Errorf("doctor %d: %w", id, err)
	}
	d.DoctorID = id
	d.Step = StepService
	return nil
}

// SelectService records the service and moves to the date step.
func (d *Draft) SelectService(id int) error {
	if err := d.editable(); err != nil {
		return err
	}
	if _, err := catalog.ServiceByID(id); err != nil {
		return fmt.Errorf("service %d: %w", id, err)
	}
	d.ServiceID = id
	d.Step = StepDate
	return nil
}

// SelectDate records a YYYY-MM-DD date from the booking window that starts at
// now, and moves to the time step.
func (d *Draft) SelectDate(date string, now time.Time) error {
	if err := d.editable(); err != nil {
		return err
	}
	if !catalog.InBookingWindow(date, now) {
		return fmt.Errorf("%q: %w", date, ErrInvalidDate)
	}
	d.Date = date
	d.Step = StepTime
	return nil
}

// SelectTime records a time slot and moves to the review step.
func (d *Draft) SelectTime(slot string) error {
	if err := d.editable(); err != nil {
		return err
	}
	if !catalog.IsTimeSlot(slot) {
		return fmt.Errorf("%q: %w", slot, ErrInvalidTime)
	}
	d.Time = slot
	d.Step = StepReview
	return nil
}

// Back returns to the previous step. It never goes before the doctor step.
func (d *Draft) Back() error {
	if err := d.editable(); err != nil {
		return err
	}
	if d.Step > StepDoctor {
		d.Step--
	}
	return nil
}

// Complete reports whether every selection has been made.
func (d *Draft) Complete() bool {
	return d.DoctorID != 0 && d.ServiceID != 0 && d.Date != "" && d.Time != ""
}

// Confirm builds the appointment for a complete draft. With any selection
// missing it returns ErrIncompleteSelection and leaves the draft untouched.
func (d *Draft) Confirm(now time.Time) (*Appointment, error) {
	if err := d.editable(); err != nil {
		return nil, err
	}
	if !d.Complete() {
		return nil, ErrIncompleteSelection
	}

	doc, err := catalog.DoctorByID(d.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("doctor %d: %w", d.DoctorID, err)
	}
	svc, err := catalog.ServiceByID(d.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("service %d: %w", d.ServiceID, err)
	}

	appt := &Appointment{
		ID:          ulid.Make().String(),
		PatientID:   d.PatientID,
		DraftID:     d.ID,
		DoctorID:    doc.ID,
		DoctorName:  doc.Name,
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Date:        d.Date,
		Time:        d.Time,
		TotalCost:   doc.Price + svc.Price,
		Status:      StatusConfirmed,
		CreatedAt:   now,
	}
	d.AppointmentID = appt.ID
	d.UpdatedAt = now
	return appt, nil
}

func (d *Draft) editable() error {
	if d.AppointmentID != "" {
		return ErrAlreadyConfirmed
	}
	return nil
}
