package httpapi

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/innovatopia-jp/sourcedesk/internal/auth"
)

func TestRequireBasicAuth(t *testing.T) {
	t.Parallel()

	creds, err := auth.NewCredentials("admin", "changeme123")
	if err != nil {
		t.Fatalf("new credentials: %v", err)
	}
	server := &Server{logger: zerolog.Nop(), creds: creds}

	next := func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}
	handler := server.requireBasicAuth()(next)

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()

		c, _ := newJSONContext(http.MethodGet, "/api/v1/users", "")
		err := handler(c)
		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 HTTPError, got %v", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		c, _ := newJSONContext(http.MethodGet, "/api/v1/users", "")
		c.Request().SetBasicAuth("admin", "wrong")
		err := handler(c)
		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 HTTPError, got %v", err)
		}
	})

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()

		c, rec := newJSONContext(http.MethodGet, "/api/v1/users", "")
		c.Request().SetBasicAuth("admin", "changeme123")
		if err := handler(c); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Fatalf("unexpected status: got %d", rec.Code)
		}
	})
}
