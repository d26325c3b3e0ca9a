package utils

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"
)

func TestSameOrigin(t *testing.T) {
	const origin = "https://app.example"

	tests := []struct {
		name     string
		target   string
		expected bool
	}{
		{"Root-relative path", "/local/path", true},
		{"Root-relative with query", "/foo?bar=1", true},
		{"Same scheme and host", "https://app.example/x?y=1", true},
		{"Different host", "https://evil.example/x", false},
		{"Different scheme", "http://app.example/x", false},
		{"Different port", "https://app.example:8443/x", false},
		{"Relative path without slash", "foo/bar", false},
		{"Scheme without host", "https:foo", false},
		{"Root path", "/", true},
		{"Protocol-relative", "//evil.example/x", false},
		{"Backslash protocol-relative", "/\\evil.example/x", false},
		{"Unparseable", "https://app.example/%zz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameOrigin(origin, tt.target); got != tt.expected {
				t.Errorf("SameOrigin(%q, %q) = %v, expected %v", origin, tt.target, got, tt.expected)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		target   string
		expected string
	}{
		{"/foo?bar=1", "/foo?bar=1"},
		{"/foo#frag", "/foo#frag"},
		{"https://app.example", "/"},
		{"https://app.example/a/b", "/a/b"},
		{"https://app.example/a?b=1&c=2", "/a?b=1&c=2"},
		{"https://app.example/a?b=1#section", "/a?b=1"},
		{"https://app.example/a%20b", "/a%20b"},
		{"https://app.example/a%2Fb", "/a%2Fb"},
		{"https://app.example/ü b", "/ü b"},
		{"https://app.example/straße?q=ä", "/straße?q=ä"},
		{"https://app.example?x=1", "/?x=1"},
		{"https://app.example/a?", "/a"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.target); got != tt.expected {
			t.Errorf("NormalizePath(%q) = %q, expected %q", tt.target, got, tt.expected)
		}
	}
}

func TestRequestOrigin(t *testing.T) {
	req := httptest.NewRequest("POST", "http://app.example/api/shorten", nil)
	if got := RequestOrigin(req, false); got != "http://app.example" {
		t.Errorf("plain request origin = %q", got)
	}

	req.Header.Set("X-Forwarded-Proto", "https, http")
	if got := RequestOrigin(req, false); got != "http://app.example" {
		t.Errorf("untrusted forwarded proto must be ignored, got %q", got)
	}
	if got := RequestOrigin(req, true); got != "https://app.example" {
		t.Errorf("trusted forwarded proto = %q", got)
	}

	tlsReq := httptest.NewRequest("POST", "https://app.example/api/shorten", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	if got := RequestOrigin(tlsReq, false); got != "https://app.example" {
		t.Errorf("tls request origin = %q", got)
	}
}

func TestOriginOf(t *testing.T) {
	got, err := OriginOf("http://localhost:8080/")
	if err != nil || got != "http://localhost:8080" {
		t.Errorf("OriginOf = %q, %v", got, err)
	}

	if _, err := OriginOf("localhost:8080"); err == nil {
		t.Error("OriginOf without scheme expected error but got nil")
	}
}
