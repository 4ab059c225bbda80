package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/linnemanlabs/go-core/log"
)

const bcryptCost = 12

// GuestPrefix marks guest subjects in session tokens.
const GuestPrefix = "guest-"

// Session is the result of a successful register, login or guest entry.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      Role      `json:"role"`
	Account   *Account  `json:"account,omitempty"`
	GuestID   string    `json:"guest_id,omitempty"`
}

// Service is the business boundary for accounts.
type Service struct {
	store  Store
	tokens *Tokens
	logger log.Logger
}

// NewService creates an account service.
func NewService(store Store, tokens *Tokens, logger log.Logger) *Service {
	return &Service{store: store, tokens: tokens, logger: logger}
}

// Register creates an account and signs the patient in.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	a := &Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info(ctx, "account registered", "account_id", a.ID)
	return s.session(a)
}

// Login checks the password and signs the patient in.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	a, ok, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		s.logger.Warn(ctx, "login failed", "account_id", a.ID)
		return nil, ErrInvalidCredentials
	}
	return s.session(a)
}

// Guest signs in an anonymous visitor. Nothing is persisted.
func (s *Service) Guest(_ context.Context) (*Session, error) {
	id := GuestPrefix + uuid.NewString()
	tok, exp, err := s.tokens.Issue(id, RoleGuest, "")
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, ExpiresAt: exp, Role: RoleGuest, GuestID: id}, nil
}

// Get returns a registered account.
func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	a, ok, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// RegisterDevice stores the push notification token of the account's device.
func (s *Service) RegisterDevice(ctx context.Context, id, token string) error {
	if strings.HasPrefix(id, GuestPrefix) {
		return ErrGuest
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingFields
	}
	return s.store.SetDeviceToken(ctx, id, token)
}

// DeviceToken returns the push token registered for id, if any.
func (s *Service) DeviceToken(ctx context.Context, id string) (string, bool, error) {
	if strings.HasPrefix(id, GuestPrefix) {
		return "", false, nil
	}
	a, ok, err := s.store.GetAccount(ctx, id)
	if err != nil || !ok {
		return "", false, err
	}
	return a.DeviceToken, a.DeviceToken != "", nil
}

func (s *Service) session(a *Account) (*Session, error) {
	tok, exp, err := s.tokens.Issue(a.ID, RolePatient, a.Name)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, ExpiresAt: exp, Role: RolePatient, Account: a}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
