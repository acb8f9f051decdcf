package clientip

import (
	"net/http/httptest"
	"testing"
)

func TestRealClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.10:5123", "192.0.2.10"},
		{"[2001:db8::1]:80", "2001:db8::1"},
		{"192.0.2.11", "192.0.2.11"},
		{"[2001:db8::2]", "2001:db8::2"},
		{"[::ffff:192.0.2.12]:443", "192.0.2.12"},
		{"[fe80::1%eth0]:80", "fe80::1"},
		{"  192.0.2.13:1 ", "192.0.2.13"},
		{"not-an-ip", "not-an-ip"},
		{"", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = tt.remote
		r.Header.Set("X-Forwarded-For", "203.0.113.9")
		if got := RealClientIP(r); got != tt.want {
			t.Errorf("RealClientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
