package negotiation

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testMiddleware(seen **ClientInfo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return Middleware("1.3.0", logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = ClientFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func decodeErrorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error.Code
}

func TestMiddleware_NoHeader(t *testing.T) {
	var seen *ClientInfo
	h := testMiddleware(&seen)

	req := httptest.NewRequest("GET", "/cart", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get(VersionHeader); got != "1.3.0" {
		t.Errorf("%s = %q, want 1.3.0", VersionHeader, got)
	}
	if seen != nil {
		t.Errorf("ClientFromContext() = %+v, want nil", seen)
	}
}

func TestMiddleware_CompatibleClient(t *testing.T) {
	var seen *ClientInfo
	h := testMiddleware(&seen)

	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(ClientHeader, `version="1.2.0", name="web"`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if seen == nil || seen.Version != "1.2.0" || seen.Name != "web" {
		t.Errorf("ClientFromContext() = %+v, want 1.2.0/web", seen)
	}
}

func TestMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"newer minor", `version="1.4.0"`, ClientVersionUnsupported},
		{"other major", `version="2.0.0"`, ClientVersionUnsupported},
		{"not semver", `version="soon"`, ClientHeaderInvalid},
		{"missing version", `name="web"`, ClientHeaderInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *ClientInfo
			h := testMiddleware(&seen)

			req := httptest.NewRequest("POST", "/cart/items", nil)
			req.Header.Set(ClientHeader, tt.header)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if code := decodeErrorCode(t, w.Body); code != tt.wantCode {
				t.Errorf("Error code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestMiddleware_ExemptPaths(t *testing.T) {
	for _, path := range []string{"/health", "/healthz", "/metrics"} {
		var seen *ClientInfo
		h := testMiddleware(&seen)

		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set(ClientHeader, `version="9.0.0"`)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}
