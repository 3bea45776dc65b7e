package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsRequest(t *testing.T, origins []string, method, origin string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	var nextCalled bool
	handler := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, nextCalled
}

func TestCORSNoConfiguredOriginsAllowsAll(t *testing.T) {
	rec, _ := corsRequest(t, nil, http.MethodGet, "https://anywhere.example.com")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestCORSEchoesConfiguredOrigin(t *testing.T) {
	origins := []string{"https://app.example.com", "https://intake.example.com"}

	rec, _ := corsRequest(t, origins, http.MethodGet, "https://intake.example.com")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://intake.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the request origin", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want Origin", got)
	}
}

func TestCORSOmitsHeaderForUnlistedOrigin(t *testing.T) {
	origins := []string{"https://app.example.com"}

	rec, nextCalled := corsRequest(t, origins, http.MethodGet, "https://evil.example.com")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin must get no Allow-Origin header, got %q", got)
	}
	if !nextCalled {
		t.Error("the request itself must still be served")
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rec, nextCalled := corsRequest(t, nil, http.MethodOptions, "https://app.example.com")
	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
	if nextCalled {
		t.Error("preflight must not reach the next handler")
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := BearerToken(req); got != "" {
		t.Errorf("no header: got %q", got)
	}

	req.Header.Set("Authorization", "Bearer tok-123")
	if got := BearerToken(req); got != "tok-123" {
		t.Errorf("token = %q", got)
	}

	req.Header.Set("Authorization", "Basic dXNlcg==")
	if got := BearerToken(req); got != "" {
		t.Errorf("non-bearer scheme must yield empty, got %q", got)
	}
}
