package validation

import (
	"strings"
	"testing"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name      string
		baseURL   string
		expectErr string
	}{
		{name: "Local backend", baseURL: "http://localhost:8000"},
		{name: "HTTPS with path", baseURL: "https://api.example.com/topgirl"},
		{name: "Empty", baseURL: "", expectErr: "not set"},
		{name: "Missing scheme", baseURL: "localhost:8000", expectErr: "http or https"},
		{name: "Unsupported scheme", baseURL: "ftp://example.com", expectErr: "http or https"},
		{name: "No host", baseURL: "http://", expectErr: "no host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.baseURL)
			if tt.expectErr == "" {
				if err != nil {
					t.Errorf("ValidateBaseURL(%q) unexpected error = %v", tt.baseURL, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateBaseURL(%q) expected error but got none", tt.baseURL)
			}
			if !strings.Contains(err.Error(), tt.expectErr) {
				t.Errorf("ValidateBaseURL(%q) error = %v, expected it to mention %q", tt.baseURL, err, tt.expectErr)
			}
		})
	}
}

func TestValidateSessionBackend(t *testing.T) {
	tests := []struct {
		name      string
		backend   string
		redisURL  string
		expectErr bool
	}{
		{name: "File", backend: "file"},
		{name: "Memory", backend: "memory"},
		{name: "Redis with URL", backend: "redis", redisURL: "redis://localhost:6379/0"},
		{name: "Redis without URL", backend: "redis", expectErr: true},
		{name: "Unknown backend", backend: "sqlite", expectErr: true},
		{name: "Empty backend", backend: "", expectErr: true},
		{name: "Case sensitive", backend: "File", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionBackend(tt.backend, tt.redisURL)
			if tt.expectErr && err == nil {
				t.Errorf("ValidateSessionBackend(%q) expected error but got none", tt.backend)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("ValidateSessionBackend(%q) unexpected error = %v", tt.backend, err)
			}
		})
	}
}
