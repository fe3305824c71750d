package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/versachat/versachat-api/internal/domain"
	"github.com/versachat/versachat-api/internal/service"
	"github.com/versachat/versachat-api/internal/token"
	"github.com/versachat/versachat-api/internal/util"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid email", service.ErrEmailInvalid, http.StatusBadRequest},
		{"short password", util.ErrPasswordTooShort, http.StatusBadRequest},
		{"code not found", service.ErrCodeNotFound, http.StatusBadRequest},
		{"code expired", service.ErrCodeExpired, http.StatusBadRequest},
		{"code exhausted", service.ErrCodeExhausted, http.StatusBadRequest},
		{"code mismatch", service.ErrCodeMismatch, http.StatusBadRequest},
		{"rate limited", service.ErrRateLimited, http.StatusTooManyRequests},
		{"email taken", service.ErrEmailAlreadyUsed, http.StatusConflict},
		{"already verified", service.ErrAccountAlreadyVerified, http.StatusConflict},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"reset token invalid", service.ErrResetTokenInvalid, http.StatusUnauthorized},
		{"token malformed", token.ErrMalformed, http.StatusUnauthorized},
		{"token bad signature", token.ErrBadSignature, http.StatusUnauthorized},
		{"token expired", token.ErrExpired, http.StatusUnauthorized},
		{"token wrong intent", token.ErrWrongIntent, http.StatusUnauthorized},
		{"not verified", service.ErrNotVerified, http.StatusForbidden},
		{"external only", service.ErrExternalOnly, http.StatusForbidden},
		{"unknown error", errors.New("pg connection lost"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t)
			if err := writeServiceError(c, tc.err); err != nil {
				t.Fatalf("writeServiceError returned error: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if success, _ := body["success"].(bool); success {
				t.Fatal("expected success=false in failure envelope")
			}
			if body["error"] == "" {
				t.Fatal("expected an error message")
			}
		})
	}
}

func TestWriteServiceErrorHidesInternals(t *testing.T) {
	c, rec := newTestContext(t)
	if err := writeServiceError(c, errors.New("dial tcp 10.0.0.5:5432: connection refused")); err != nil {
		t.Fatalf("writeServiceError returned error: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["error"] != "internal error" {
		t.Fatalf("internal detail leaked: %v", body["error"])
	}
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	e := echo.New()
	handler := RequireAuth(nil)(func(c echo.Context) error {
		t.Fatal("next handler must not run without credentials")
		return nil
	})

	for _, header := range []string{"", "Basic abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("header %q: unexpected error: %v", header, err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestCurrentUser(t *testing.T) {
	c, _ := newTestContext(t)
	if _, ok := CurrentUser(c); ok {
		t.Fatal("expected no user on a fresh context")
	}

	user := &domain.User{Email: "a@example.com"}
	c.Set(contextUserKey, user)
	got, ok := CurrentUser(c)
	if !ok || got != user {
		t.Fatal("expected stored user to round-trip")
	}
}
