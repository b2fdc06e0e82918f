package session

import (
	"context"
	"strings"
	"time"

	"github.com/atinyakov/docchat/internal/models"
	"github.com/google/uuid"
)

// DefaultMockDelay is the simulated network latency of MockAuthenticator.
const DefaultMockDelay = time.Second

// Credentials are the inputs of a login or registration.
type Credentials struct {
	Email    string
	Password string
	// Name is only used by registration.
	Name string
}

// Result is a successful authentication outcome.
type Result struct {
	User  models.User
	Token string
}

// Authenticator turns credentials into an authenticated user.
type Authenticator interface {
	Login(ctx context.Context, c Credentials) (Result, error)
	Register(ctx context.Context, c Credentials) (Result, error)
	// IssuesTokens reports whether successful results carry a bearer token
	// that must be present to restore a persisted session.
	IssuesTokens() bool
}

// MockAuthenticator accepts any credentials after a fixed delay.
type MockAuthenticator struct {
	Delay time.Duration
	// NewID generates user identifiers. Defaults to uuid.NewString.
	NewID func() string
}

// NewMockAuthenticator returns a mock authenticator with the given delay.
func NewMockAuthenticator(delay time.Duration) *MockAuthenticator {
	return &MockAuthenticator{Delay: delay, NewID: uuid.NewString}
}

// Login implements Authenticator.
func (m *MockAuthenticator) Login(ctx context.Context, c Credentials) (Result, error) {
	if err := m.wait(ctx); err != nil {
		return Result{}, &AuthError{Op: OpLogin, Message: "Login failed", Err: err}
	}
	return Result{User: m.user(c.Email, "")}, nil
}

// Register implements Authenticator.
func (m *MockAuthenticator) Register(ctx context.Context, c Credentials) (Result, error) {
	if err := m.wait(ctx); err != nil {
		return Result{}, &AuthError{Op: OpRegister, Message: "Registration failed", Err: err}
	}
	return Result{User: m.user(c.Email, c.Name)}, nil
}

// IssuesTokens implements Authenticator.
func (m *MockAuthenticator) IssuesTokens() bool { return false }

func (m *MockAuthenticator) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *MockAuthenticator) user(email, name string) models.User {
	if name == "" {
		name = LocalPart(email)
	}
	newID := m.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return models.User{ID: newID(), Name: name, Email: email}
}

// LocalPart returns the part of an email address before the '@'.
func LocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
