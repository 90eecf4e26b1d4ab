package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func(origins []string, origin, method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		CORS(origins)(next).ServeHTTP(rec, req)
		return rec
	}

	t.Run("allowed origin echoed", func(t *testing.T) {
		rec := send([]string{"http://localhost:3000"}, "http://localhost:3000", http.MethodGet)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Fatalf("allow-origin = %q", got)
		}
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		rec := send([]string{"http://localhost:3000"}, "http://evil.example", http.MethodGet)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("allow-origin = %q, want empty", got)
		}
	})

	t.Run("wildcard allows any origin", func(t *testing.T) {
		rec := send([]string{"*"}, "http://anywhere.example", http.MethodGet)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://anywhere.example" {
			t.Fatalf("allow-origin = %q", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		rec := send([]string{"http://localhost:3000"}, "http://localhost:3000", http.MethodOptions)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("preflight status = %d, want 204", rec.Code)
		}
	})
}
