package token

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("super-secret"), time.Hour)
	accountID := "acct-123"

	tok, err := iss.Issue(accountID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	got, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if got != accountID {
		t.Fatalf("account ID mismatch: got %q want %q", got, accountID)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("secret"), -1*time.Second)

	tok, err := iss.Issue("acct-1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = iss.Verify(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewIssuer([]byte("right-secret"), time.Hour).Issue("acct-2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = NewIssuer([]byte("wrong-secret"), time.Hour).Verify(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for bad signature, got %v", err)
	}
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer([]byte("k"), time.Hour).Verify("not.a.jwt")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
}
