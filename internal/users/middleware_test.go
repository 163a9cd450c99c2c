package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

// gateContext builds an Echo context for a request with the given
// Authorization header.
func gateContext(t *testing.T, authHeader string) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/users/current", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec)
}

func TestRequireSession_Success(t *testing.T) {
	svc := newTestService(nil)
	tok, err := svc.issuer.Issue("acct-1")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	user := &User{ID: "acct-1", Email: "a@x.com", SessionToken: tok}
	svc.repo = &mockRepo{
		findByIDFn: func(ctx context.Context, id string) (*User, error) {
			return user, nil
		},
	}

	nextCalled := false
	mw := RequireSession(svc)
	handler := mw(func(c echo.Context) error {
		nextCalled = true
		if got := CurrentUser(c); got != user {
			t.Error("expected the gated account in the context")
		}
		return nil
	})

	c := gateContext(t, "Bearer "+tok)
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !nextCalled {
		t.Error("expected the next handler to run")
	}
}

func TestRequireSession_Rejections(t *testing.T) {
	svc := newTestService(nil)
	tok, err := svc.issuer.Issue("acct-1")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	// The account's stored token is different, so even a well-signed token
	// fails the gate.
	svc.repo = &mockRepo{
		findByIDFn: func(ctx context.Context, id string) (*User, error) {
			return &User{ID: "acct-1", SessionToken: "something-else"}, nil
		},
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer header", "Basic dXNlcjpwYXNz"},
		{"bearer with garbage token", "Bearer not.a.jwt"},
		{"stale token", "Bearer " + tok},
	}

	mw := RequireSession(svc)
	handler := mw(func(c echo.Context) error {
		t.Error("next handler must not run on a rejected request")
		return nil
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := gateContext(t, tt.header)
			err := handler(c)
			appErr := assertAppError(t, err, 401)
			if appErr.Message != "Not authorized" {
				t.Errorf("expected uniform gate message, got %q", appErr.Message)
			}
			if CurrentUser(c) != nil {
				t.Error("expected no account in the context after rejection")
			}
		})
	}
}

func TestCurrentUser_UnauthenticatedContext(t *testing.T) {
	c := gateContext(t, "")
	if CurrentUser(c) != nil {
		t.Error("expected nil for a context the gate never touched")
	}
}
