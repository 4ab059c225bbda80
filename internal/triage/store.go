package triage

import "context"

// Store is the persistence interface for assessments.
type Store interface {
	GetAssessment(ctx context.Context, id string) (*Assessment, bool, error)
	PutAssessment(ctx context.Context, a *Assessment) error
}

// Notifier is told about assessments that completed in the Urgent tier.
type Notifier interface {
	NotifyUrgent(ctx context.Context, a *Assessment) error
}
