package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{
			name:       "GET without content type passes",
			method:     "GET",
			wantStatus: http.StatusOK,
		},
		{
			name:        "POST with json passes",
			method:      "POST",
			contentType: "application/json",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "POST with json charset passes",
			method:      "POST",
			contentType: "application/json; charset=utf-8",
			wantStatus:  http.StatusOK,
		},
		{
			name:       "POST without content type rejected",
			method:     "POST",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "PATCH with form data rejected",
			method:      "PATCH",
			contentType: "application/x-www-form-urlencoded",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			middleware := ContentType(handler)

			req := httptest.NewRequest(tt.method, "/api/items", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()

			middleware.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
