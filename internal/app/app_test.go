package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hnatiuk/accounts/internal/apperror"
)

// runErrorHandler feeds err through the app error handler and returns the
// recorded response.
func runErrorHandler(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/users/current", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	a := &App{Echo: e}
	a.errorHandler(err, c)
	return rec
}

// decodeMessage pulls the "message" field out of an error response body.
func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body["message"]
}

func TestErrorHandler_AppError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
	}{
		{"validation", apperror.NewBadRequest("email is required"), 400, "email is required"},
		{"auth", apperror.NewUnauthorized("Not authorized"), 401, "Not authorized"},
		{"conflict", apperror.NewConflict("Email in Use"), 409, "Email in Use"},
		{"internal", apperror.NewInternal(errors.New("db connection lost")), 500, "db connection lost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := runErrorHandler(t, tt.err)
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if got := decodeMessage(t, rec); got != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, got)
			}
		})
	}
}

func TestErrorHandler_EchoHTTPError(t *testing.T) {
	rec := runErrorHandler(t, echo.NewHTTPError(http.StatusNotFound, "Not Found"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Not Found" {
		t.Errorf("expected message %q, got %q", "Not Found", got)
	}
}

func TestErrorHandler_GenericError(t *testing.T) {
	rec := runErrorHandler(t, errors.New("something broke"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "something broke" {
		t.Errorf("expected message %q, got %q", "something broke", got)
	}
}

func TestErrorHandler_WrappedAppError(t *testing.T) {
	wrapped := echo.NewHTTPError(http.StatusInternalServerError).SetInternal(apperror.NewConflict("Email in Use"))
	rec := runErrorHandler(t, wrapped)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected the wrapped AppError to win, got %d", rec.Code)
	}
}
