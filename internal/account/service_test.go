package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// mockStore implements Store for testing.
type mockStore struct {
	mu      sync.Mutex
	byID    map[string]*Account
	byEmail map[string]string
	getErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func (m *mockStore) GetAccount(_ context.Context, id string) (*Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, false, nil
	}
	cp := *a
	return &cp, true, nil
}

func (m *mockStore) GetAccountByEmail(_ context.Context, email string) (*Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	id, ok := m.byEmail[email]
	if !ok {
		return nil, false, nil
	}
	cp := *m.byID[id]
	return &cp, true, nil
}

func (m *mockStore) CreateAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[a.Email]; ok {
		return ErrEmailTaken
	}
	cp := *a
	m.byID[a.ID] = &cp
	m.byEmail[a.Email] = a.ID
	return nil
}

func (m *mockStore) SetDeviceToken(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.DeviceToken = token
	return nil
}

func newTestService() (*Service, *mockStore) {
	store := newMockStore()
	return NewService(store, NewTokens("test-secret", time.Hour), log.Nop()), store
}

func TestRegister_MissingFields(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	tests := []struct {
		name, email, password string
	}{
		{"", "a@b.c", "pw"},
		{"Sam", "", "pw"},
		{"Sam", "a@b.c", ""},
		{"   ", "a@b.c", "pw"},
	}
	for _, tt := range tests {
		if _, err := svc.Register(context.Background(), tt.name, tt.email, tt.password); !errors.Is(err, ErrMissingFields) {
			t.Errorf("Register(%q, %q, %q) err = %v, want ErrMissingFields", tt.name, tt.email, tt.password, err)
		}
	}
}

func TestRegisterThenLogin(t *testing.T) {
	t.Parallel()

	svc, store := newTestService()
	ctx := context.Background()

	sess, err := svc.Register(ctx, "Sam", "  Sam@Example.com ", "hunter2")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.Role != RolePatient || sess.Account == nil {
		t.Fatalf("session = %+v", sess)
	}
	if sess.Account.Email != "sam@example.com" {
		t.Errorf("email = %q, want normalized", sess.Account.Email)
	}
	stored := store.byID[sess.Account.ID]
	if string(stored.PasswordHash) == "hunter2" || len(stored.PasswordHash) == 0 {
		t.Error("password must be stored hashed")
	}

	claims, err := svc.tokens.Parse(sess.Token)
	if err != nil {
		t.Fatalf("Parse session token: %v", err)
	}
	if claims.Subject != sess.Account.ID {
		t.Errorf("subject = %q, want %q", claims.Subject, sess.Account.ID)
	}

	if _, err := svc.Register(ctx, "Other", "sam@example.com", "pw"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate Register err = %v, want ErrEmailTaken", err)
	}

	login, err := svc.Login(ctx, "SAM@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Account.ID != sess.Account.ID {
		t.Errorf("login account = %q, want %q", login.Account.ID, sess.Account.ID)
	}

	if _, err := svc.Login(ctx, "sam@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "", ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("blank login err = %v, want ErrMissingFields", err)
	}
}

func TestGuest(t *testing.T) {
	t.Parallel()

	svc, store := newTestService()
	sess, err := svc.Guest(context.Background())
	if err != nil {
		t.Fatalf("Guest: %v", err)
	}
	if sess.Role != RoleGuest || !strings.HasPrefix(sess.GuestID, GuestPrefix) {
		t.Errorf("session = %+v", sess)
	}
	if len(store.byID) != 0 {
		t.Error("guest sessions must not be persisted")
	}

	claims, err := svc.tokens.Parse(sess.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Role != RoleGuest || claims.Subject != sess.GuestID {
		t.Errorf("claims = %+v", claims)
	}
}

func TestDeviceToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()

	sess, err := svc.Register(ctx, "Sam", "sam@example.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	id := sess.Account.ID

	if _, ok, _ := svc.DeviceToken(ctx, id); ok {
		t.Error("expected no device token before registration")
	}
	if err := svc.RegisterDevice(ctx, id, " fcm-token-1 "); err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}
	tok, ok, err := svc.DeviceToken(ctx, id)
	if err != nil || !ok || tok != "fcm-token-1" {
		t.Errorf("DeviceToken = %q ok=%v err=%v", tok, ok, err)
	}

	if err := svc.RegisterDevice(ctx, id, "  "); !errors.Is(err, ErrMissingFields) {
		t.Errorf("blank token err = %v, want ErrMissingFields", err)
	}
	if err := svc.RegisterDevice(ctx, GuestPrefix+"x", "tok"); !errors.Is(err, ErrGuest) {
		t.Errorf("guest RegisterDevice err = %v, want ErrGuest", err)
	}
	if err := svc.RegisterDevice(ctx, "missing", "tok"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown account err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get unknown err = %v, want ErrNotFound", err)
	}
}
