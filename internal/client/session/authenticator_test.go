package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalPart(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"demo@x.com", "demo"},
		{"a.b+tag@example.org", "a.b+tag"},
		{"no-at-sign", "no-at-sign"},
		{"@x.com", ""},
	}
	for _, tt := range tests {
		if got := LocalPart(tt.email); got != tt.want {
			t.Errorf("LocalPart(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestMockAuthenticator_Login(t *testing.T) {
	m := &MockAuthenticator{NewID: func() string { return "id-1" }}

	res, err := m.Login(context.Background(), Credentials{Email: "demo@x.com", Password: "whatever"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.User.ID != "id-1" || res.User.Name != "demo" || res.User.Email != "demo@x.com" {
		t.Errorf("unexpected user: %+v", res.User)
	}
	if res.Token != "" {
		t.Errorf("mock must not issue tokens, got %q", res.Token)
	}
	if m.IssuesTokens() {
		t.Error("IssuesTokens() = true, want false")
	}
}

func TestMockAuthenticator_Register(t *testing.T) {
	m := &MockAuthenticator{NewID: func() string { return "id-2" }}

	tests := []struct {
		name     string
		given    string
		wantName string
	}{
		{"explicit name", "Jane Roe", "Jane Roe"},
		{"empty name falls back to local part", "", "jane"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.Register(context.Background(), Credentials{Email: "jane@x.com", Password: "p", Name: tt.given})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.User.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", res.User.Name, tt.wantName)
			}
		})
	}
}

func TestMockAuthenticator_DistinctIDs(t *testing.T) {
	m := NewMockAuthenticator(0)
	a, _ := m.Login(context.Background(), Credentials{Email: "a@x.com"})
	b, _ := m.Login(context.Background(), Credentials{Email: "a@x.com"})
	if a.User.ID == "" || a.User.ID == b.User.ID {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a.User.ID, b.User.ID)
	}
}

func TestMockAuthenticator_ContextCancelled(t *testing.T) {
	m := NewMockAuthenticator(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Login(ctx, Credentials{Email: "a@x.com"})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected wrapped context.Canceled, got %v", err)
	}

	_, err = m.Register(ctx, Credentials{Email: "a@x.com"})
	if !errors.Is(err, ErrRegistration) {
		t.Errorf("expected registration error, got %v", err)
	}
}
