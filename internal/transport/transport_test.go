package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseFingerprint(t *testing.T) {
	tests := []struct {
		in      string
		want    Fingerprint
		wantErr bool
	}{
		{"", FingerprintGo, false},
		{"go", FingerprintGo, false},
		{"Chrome", FingerprintChrome, false},
		{" firefox ", FingerprintFirefox, false},
		{"safari", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFingerprint(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFingerprint(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFingerprint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_GoFingerprint(t *testing.T) {
	rt := New(Options{Timeout: 3 * time.Second})
	tr, ok := rt.(*http.Transport)
	if !ok {
		t.Fatalf("New() type = %T, want *http.Transport", rt)
	}
	if tr.TLSHandshakeTimeout != 3*time.Second {
		t.Errorf("TLSHandshakeTimeout = %v, want 3s", tr.TLSHandshakeTimeout)
	}
}

func TestFingerprintTransport_PlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	for _, fp := range []Fingerprint{FingerprintChrome, FingerprintFirefox} {
		client := &http.Client{Transport: New(Options{Fingerprint: fp, Timeout: time.Second})}
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("%s: Get() error = %v", fp, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != "ok" {
			t.Errorf("%s: body = %q, want ok", fp, body)
		}
	}
}
