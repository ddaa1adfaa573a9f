package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedHandler(t *testing.T) http.Handler {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return APIKeyAuth("secret-key")(next)
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"valid x-api-key", "X-API-Key", "secret-key", http.StatusOK},
		{"valid bearer", "Authorization", "Bearer secret-key", http.StatusOK},
		{"wrong key", "X-API-Key", "not-the-key", http.StatusForbidden},
		{"missing key", "", "", http.StatusUnauthorized},
		{"malformed bearer", "Authorization", "Basic secret-key", http.StatusUnauthorized},
	}

	handler := authedHandler(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/projects", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
