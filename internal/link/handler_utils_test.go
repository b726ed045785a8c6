package link

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractCodeFromPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "simple path",
			path: "/abc123",
			want: "abc123",
		},
		{
			name: "path with prefix segment",
			path: "/s/abc123",
			want: "abc123",
		},
		{
			name: "nested path takes last segment",
			path: "/api/v1/abc123",
			want: "abc123",
		},
		{
			name: "root path",
			path: "/",
			want: "",
		},
		{
			name: "empty path",
			path: "",
			want: "",
		},
		{
			name: "path without leading slash",
			path: "abc123",
			want: "abc123",
		},
		{
			name: "alias with hyphen and underscore",
			path: "/my-link_1",
			want: "my-link_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractCodeFromPath(tt.path); got != tt.want {
				t.Errorf("extractCodeFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "93.184.216.34:54211",
			want:       "93.184.216.34",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "93.184.216.34",
			want:       "93.184.216.34",
		},
		{
			name:       "single forwarded entry wins",
			remoteAddr: "10.0.0.1:80",
			forwarded:  "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "first forwarded entry wins",
			remoteAddr: "10.0.0.1:80",
			forwarded:  "203.0.113.7, 198.51.100.2, 10.0.0.1",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded entry with whitespace",
			remoteAddr: "10.0.0.1:80",
			forwarded:  " 203.0.113.7 ,198.51.100.2",
			want:       "203.0.113.7",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/abc123", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOwnerID(t *testing.T) {
	t.Run("returns trimmed header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/links", nil)
		req.Header.Set(OwnerIDHeader, "  owner-1  ")

		if got := ownerID(req); got != "owner-1" {
			t.Errorf("ownerID() = %q, want %q", got, "owner-1")
		}
	})

	t.Run("empty when header absent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/links", nil)

		if got := ownerID(req); got != "" {
			t.Errorf("ownerID() = %q, want empty", got)
		}
	})

	t.Run("truncates overlong identifiers", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/links", nil)
		req.Header.Set(OwnerIDHeader, strings.Repeat("a", maxOwnerIDLength+50))

		got := ownerID(req)
		if len(got) != maxOwnerIDLength {
			t.Errorf("len(ownerID()) = %d, want %d", len(got), maxOwnerIDLength)
		}
	})
}
