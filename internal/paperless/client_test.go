package paperless

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nhle/paperless-upload/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return New(server.URL, "test-token", WithLogger(testLogger()))
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := New("http://localhost:8000/", "tok")
		if c.baseURL != "http://localhost:8000" {
			t.Errorf("baseURL = %q, want trailing slash stripped", c.baseURL)
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("timeout = %v, want 30s", c.httpClient.Timeout)
		}
		if c.pageSize != 1000 {
			t.Errorf("pageSize = %d, want 1000", c.pageSize)
		}
	})

	t.Run("options", func(t *testing.T) {
		hc := &http.Client{}
		c := New("http://localhost:8000", "tok", WithHTTPClient(hc), WithTimeout(5*time.Second), WithPageSize(25))
		if c.httpClient != hc {
			t.Error("custom HTTP client not set")
		}
		if hc.Timeout != 5*time.Second {
			t.Errorf("timeout = %v, want 5s", hc.Timeout)
		}
		if c.pageSize != 25 {
			t.Errorf("pageSize = %d, want 25", c.pageSize)
		}
	})
}

func TestClient_headersAndErrors(t *testing.T) {
	t.Run("auth headers", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Token test-token" {
				t.Errorf("Authorization = %q", got)
			}
			if got := r.Header.Get("Accept"); got != "application/json" {
				t.Errorf("Accept = %q", got)
			}
			if got := r.URL.Query().Get("page_size"); got != "1" {
				t.Errorf("page_size = %q, want 1", got)
			}
			w.Write([]byte(`{"count":0,"results":[]}`))
		})
		if err := c.CheckConnection(context.Background()); err != nil {
			t.Fatalf("CheckConnection: %v", err)
		}
	})

	t.Run("detail message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Invalid token."}`))
		})
		err := c.CheckConnection(context.Background())
		var he *model.HTTPError
		if !errors.As(err, &he) {
			t.Fatalf("error = %v, want *model.HTTPError", err)
		}
		if he.StatusCode != http.StatusUnauthorized || he.Body != "Invalid token." {
			t.Errorf("got status %d body %q", he.StatusCode, he.Body)
		}
		if !model.IsUnauthorized(err) {
			t.Error("IsUnauthorized = false")
		}
	})

	t.Run("plain body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Not Found"))
		})
		err := c.CheckConnection(context.Background())
		if !model.IsNotFound(err) {
			t.Fatalf("error = %v, want 404", err)
		}
		if !strings.Contains(err.Error(), "Not Found") {
			t.Errorf("error %q does not carry body", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := c.CheckConnection(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}
