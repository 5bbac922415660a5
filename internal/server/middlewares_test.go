package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

type testLogger struct{}

func (testLogger) Debug(v ...any)                 {}
func (testLogger) Info(v ...any)                  {}
func (testLogger) Error(v ...any)                 {}
func (testLogger) Debugf(format string, v ...any) {}
func (testLogger) Infof(format string, v ...any)  {}
func (testLogger) Errorf(format string, v ...any) {}
func (testLogger) Tracef(format string, v ...any) {}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestInternalAuthMw(t *testing.T) {
	s := Server{Logger: testLogger{}, InternalAPIKey: "internal-secret"}

	tests := []struct {
		name       string
		key        string
		wantStatus int
		wantCalled bool
	}{
		{"no key", "", http.StatusUnauthorized, false},
		{"wrong key", "wrong", http.StatusUnauthorized, false},
		{"right key", "internal-secret", http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodPost, "/api/internal/notify-price-alert", nil)
			if tt.key != "" {
				req.Header.Set(internalAPIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()

			s.internalAuthMw(okHandler(&called)).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d", rec.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called: %v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestAuthMwRejectsBadTokens(t *testing.T) {
	key, err := jwk.FromRaw([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("error creating key: %v", err)
	}
	s := Server{Logger: testLogger{}, AuthSecretKey: key}

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not a bearer token", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, "/api/user/preferences", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			s.authMw(okHandler(&called)).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("got status %d, want 401", rec.Code)
			}
			if called {
				t.Errorf("handler reached with an invalid session token")
			}
		})
	}
}
