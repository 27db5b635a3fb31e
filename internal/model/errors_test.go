package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	bare := &APIError{Code: CodeNotFound, Message: "cart not found"}
	if got := bare.Error(); got != "NOT_FOUND: cart not found" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := &APIError{Code: CodeUpstream, Message: "Sylius request failed", Err: errors.New("EOF")}
	if got := wrapped.Error(); got != "UPSTREAM_ERROR: Sylius request failed (EOF)" {
		t.Errorf("Error() = %q", got)
	}
	if wrapped.Unwrap() == nil || bare.Unwrap() != nil {
		t.Error("Unwrap() should return the wrapped error or nil")
	}
}

func TestConstructors(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	tests := []struct {
		name     string
		err      *APIError
		code     string
		message  string
		status   int
		sentinel error
	}{
		{"not found", NewNotFoundError("cart item"), CodeNotFound, "cart item not found", http.StatusNotFound, ErrNotFound},
		{"validation", NewValidationError("quantity", "must be at least 1"), CodeValidation, "invalid quantity: must be at least 1", http.StatusBadRequest, ErrInvalidRequest},
		{"unauthorized", NewUnauthorizedError("invalid identity token"), CodeUnauthorized, "invalid identity token", http.StatusUnauthorized, ErrUnauthorized},
		{"upstream", NewUpstreamError("Sylius", cause), CodeUpstream, "Sylius request failed", http.StatusBadGateway, ErrUpstreamError},
		{"rate limited", NewRateLimitError("Sylius"), CodeRateLimited, "Sylius rate limit exceeded, please retry later", http.StatusTooManyRequests, ErrRateLimited},
		{"session", NewSessionUnavailableError(cause), CodeSessionUnavailable, "session store unavailable, please retry", http.StatusServiceUnavailable, ErrSessionUnavailable},
		{"internal", NewInternalError(cause), CodeInternal, "an internal error occurred", http.StatusInternalServerError, cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message != tt.message {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.message)
			}
			if tt.err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.status)
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v) = false, want true", tt.sentinel)
			}
		})
	}
}

func TestNewUpstreamError_KeepsCause(t *testing.T) {
	err := NewUpstreamError("Sylius", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("cause should stay reachable through errors.Is")
	}
	if !errors.Is(err, ErrUpstreamError) {
		t.Error("errors.Is(ErrUpstreamError) = false, want true")
	}
}

func TestAsAPIError(t *testing.T) {
	notFound := NewNotFoundError("cart")
	got, ok := AsAPIError(fmt.Errorf("resolving cart: %w", notFound))
	if !ok || got != notFound {
		t.Errorf("AsAPIError(wrapped) = %v, %v; want the original, true", got, ok)
	}

	plain := errors.New("nil map write")
	got, ok = AsAPIError(plain)
	if ok {
		t.Error("AsAPIError(plain) ok = true, want false")
	}
	if got.Code != CodeInternal || !errors.Is(got, plain) {
		t.Errorf("AsAPIError(plain) = %v, want INTERNAL_ERROR wrapping the cause", got)
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteError(w, NewUpstreamError("Sylius", errors.New("secret detail"))); err != nil {
		t.Fatalf("WriteError() error = %v", err)
	}

	if w.Code != http.StatusBadGateway {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	errBody := body["error"]
	if errBody["code"] != CodeUpstream || errBody["message"] != "Sylius request failed" {
		t.Errorf("error body = %v", errBody)
	}
	if len(errBody) != 2 {
		t.Errorf("error body has %d fields, want only code and message", len(errBody))
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", NewNotFoundError("cart"), true},
		{"wrapped not found", fmt.Errorf("fetching cart 7: %w", NewNotFoundError("cart")), true},
		{"upstream", NewUpstreamError("Sylius", errors.New("timeout")), false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}
