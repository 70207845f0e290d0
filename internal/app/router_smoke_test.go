package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRouterSmokePublicRoutes(t *testing.T) {
	router := NewRouter(Config{
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		RateLimitPerMin:    1000,
		MaxUploadBytes:     1 << 20,
	}, nil)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{name: "healthz", method: http.MethodGet, target: "/healthz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, target: "/metrics", wantStatus: http.StatusOK},
		{name: "template_json", method: http.MethodGet, target: "/api/v1/answer-keys/template.json", wantStatus: http.StatusOK},
		{name: "template_xlsx", method: http.MethodGet, target: "/api/v1/answer-keys/template.xlsx", wantStatus: http.StatusOK},
		{name: "upload_invalid_body", method: http.MethodPost, target: "/api/v1/answer-keys", body: "{", wantStatus: http.StatusBadRequest},
		{name: "score_invalid_body", method: http.MethodPost, target: "/api/v1/scores", body: "{", wantStatus: http.StatusBadRequest},
		{name: "score_missing_fields", method: http.MethodPost, target: "/api/v1/scores", body: "{}", wantStatus: http.StatusBadRequest},
		{name: "result_bad_id", method: http.MethodGet, target: "/api/v1/scores/abc", wantStatus: http.StatusBadRequest},
		{name: "key_bad_id", method: http.MethodGet, target: "/api/v1/answer-keys/0", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tc.method, tc.target, nil)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Fatalf("%s %s: got status %d, want %d", tc.method, tc.target, w.Code, tc.wantStatus)
			}
		})
	}
}
