package usertoken

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	m, err := NewManager(Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	subject, err := m.VerifySubject(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("unexpected subject: %q", subject)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewManager(Config{Secret: "secret-a"})
	verifier, _ := NewManager(Config{Secret: "secret-b"})
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.VerifySubject(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, _ := NewManager(Config{Secret: "test-secret", TTL: time.Millisecond, Leeway: time.Millisecond})
	token, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := m.VerifySubject(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m, _ := NewManager(Config{Secret: "test-secret"})
	if _, err := m.VerifySubject("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager(Config{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
