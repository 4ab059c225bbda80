// Package account registers patients, checks their credentials and issues
// the signed session tokens the HTTP API authenticates with.
package account

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMissingFields is returned when a required registration or login
	// field is blank.
	ErrMissingFields = errors.New("name, email and password are required")

	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrNotFound is returned for unknown account IDs.
	ErrNotFound = errors.New("account not found")

	// ErrGuest is returned for operations that need a registered account.
	ErrGuest = errors.New("not available to guests")
)

// Role is the kind of session a token was issued for.
type Role string

const (
	RolePatient Role = "patient"
	RoleGuest   Role = "guest"
)

// Account is a registered patient.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	DeviceToken  string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the persistence interface for accounts.
type Store interface {
	GetAccount(ctx context.Context, id string) (*Account, bool, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, bool, error)
	// CreateAccount inserts a new account, failing with ErrEmailTaken when
	// the email is already registered.
	CreateAccount(ctx context.Context, a *Account) error
	// SetDeviceToken fails with ErrNotFound for unknown IDs.
	SetDeviceToken(ctx context.Context, id, token string) error
}
