// Package fcm pushes urgent results and appointment confirmations to the
// patient's device through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/smilecare/internal/booking"
	"github.com/linnemanlabs/smilecare/internal/triage"
)

// Sender delivers one message. *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// DeviceTokens resolves a patient's registered push token.
type DeviceTokens interface {
	DeviceToken(ctx context.Context, accountID string) (string, bool, error)
}

// Notifier pushes notifications to patient devices.
type Notifier struct {
	sender Sender
	tokens DeviceTokens
	logger log.Logger
}

// New initializes a Firebase app from a service account file and returns a
// notifier backed by its messaging client.
func New(ctx context.Context, credentialsFile string, tokens DeviceTokens, logger log.Logger) (*Notifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("fcm: init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("fcm: messaging client: %w", err)
	}
	return NewWithSender(client, tokens, logger), nil
}

// NewWithSender returns a notifier over an existing sender.
func NewWithSender(sender Sender, tokens DeviceTokens, logger log.Logger) *Notifier {
	return &Notifier{sender: sender, tokens: tokens, logger: logger}
}

// NotifyUrgent tells the patient their symptoms need prompt care.
func (n *Notifier) NotifyUrgent(ctx context.Context, a *triage.Assessment) error {
	if a.Result == nil {
		return nil
	}
	info := a.Result.Tier.Info()
	return n.push(ctx, a.PatientID, &messaging.Notification{
		Title: info.Title,
		Body:  info.Recommendation,
	}, map[string]string{
		"kind":          "assessment",
		"assessment_id": a.ID,
		"tier":          a.Result.Tier.String(),
	})
}

// NotifyAppointment confirms a booking to the patient.
func (n *Notifier) NotifyAppointment(ctx context.Context, a *booking.Appointment) error {
	return n.push(ctx, a.PatientID, &messaging.Notification{
		Title: "Appointment confirmed",
		Body:  fmt.Sprintf("%s with %s on %s at %s", a.ServiceName, a.DoctorName, a.Date, a.Time),
	}, map[string]string{
		"kind":           "appointment",
		"appointment_id": a.ID,
	})
}

// push is a no-op for patients without a registered device.
func (n *Notifier) push(ctx context.Context, patientID string, note *messaging.Notification, data map[string]string) error {
	token, ok, err := n.tokens.DeviceToken(ctx, patientID)
	if err != nil {
		return fmt.Errorf("fcm: device token: %w", err)
	}
	if !ok {
		return nil
	}

	id, err := n.sender.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: note,
		Data:         data,
		Android:      &messaging.AndroidConfig{Priority: "high"},
	})
	if err != nil {
		if messaging.IsUnregistered(err) {
			n.logger.Warn(ctx, "fcm device token no longer registered", "patient_id", patientID)
			return nil
		}
		return fmt.Errorf("fcm: send: %w", err)
	}

	n.logger.Info(ctx, "fcm notification sent", "patient_id", patientID, "message_id", id, "kind", data["kind"])
	return nil
}
