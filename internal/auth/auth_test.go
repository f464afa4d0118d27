package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("test-signing-key")
	token, err := svc.IssueToken(Principal{UserID: "u1", Name: "Ms Rivera", Role: "teacher"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	principal, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.UserID != "u1" || principal.Role != "teacher" || principal.Name != "Ms Rivera" {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestVerifyExpired(t *testing.T) {
	svc := NewService("test-signing-key")
	token, err := svc.IssueToken(Principal{UserID: "u1", Role: "student"}, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	token, err := NewService("key-a").IssueToken(Principal{UserID: "u1", Role: "student"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewService("key-b").VerifyToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong key, got %v", err)
	}
}

func TestVerifyUnknownRole(t *testing.T) {
	svc := NewService("test-signing-key")
	token, err := svc.IssueToken(Principal{UserID: "u1", Role: "admin"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown role, got %v", err)
	}
}

func TestAuthenticateRequest(t *testing.T) {
	svc := NewService("test-signing-key")
	token, _ := svc.IssueToken(Principal{UserID: "u1", Role: "student"}, time.Minute)

	r := httptest.NewRequest("GET", "/v1/classes", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	if _, err := svc.AuthenticateRequest(r); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	r.Header.Del("Authorization")
	if _, err := svc.AuthenticateRequest(r); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without header, got %v", err)
	}
}
