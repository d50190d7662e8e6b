package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 Safari/605.1.15"

func TestBotDetector_IsBot(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		wantBot    bool
		wantReason string
	}{
		{"Browser", browserUA, false, ""},
		{"Googlebot allowed", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", false, ""},
		{"curl", "curl/8.4.0 something", true, ReasonKnownBot},
		{"Python requests", "python-requests/2.31.0", true, ReasonKnownBot},
		{"Empty", "", true, ReasonSuspiciousUA},
		{"Unknown client", "SomeCustomClient/1.0", true, ReasonSuspiciousUA},
		{"Uptime monitor", "Pingdom.com_uptime_check/1.0", false, ""},
	}

	bd := NewBotDetector(100)
	defer bd.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
			req.Header.Set("User-Agent", tt.userAgent)

			isBot, reason := bd.IsBot(req)
			if isBot != tt.wantBot || reason != tt.wantReason {
				t.Errorf("IsBot() = %v, %q; want %v, %q", isBot, reason, tt.wantBot, tt.wantReason)
			}
		})
	}
}

func TestBotDetector_RequestRate(t *testing.T) {
	bd := NewBotDetector(3)
	defer bd.Close()

	for i := 1; i <= 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		req.Header.Set("User-Agent", browserUA)
		req.RemoteAddr = "203.0.113.9:5555"

		isBot, reason := bd.IsBot(req)
		if i <= 3 && isBot {
			t.Fatalf("Request %d flagged too early", i)
		}
		if i == 4 && (!isBot || reason != ReasonExcessiveRate) {
			t.Errorf("Request %d = %v, %q; want excessive rate", i, isBot, reason)
		}
	}

	if got := bd.GetStats()["tracked_ips"]; got != 1 {
		t.Errorf("tracked_ips = %v, want 1", got)
	}
}

func TestBotDetector_PurgeBefore(t *testing.T) {
	bd := NewBotDetector(10)
	defer bd.Close()

	bd.checkRequestRate("198.51.100.1")
	bd.purgeBefore(time.Now().Add(time.Minute))

	if got := bd.GetStats()["tracked_ips"]; got != 0 {
		t.Errorf("tracked_ips after purge = %v, want 0", got)
	}
}

func TestIsCrawler(t *testing.T) {
	tests := []struct {
		userAgent string
		want      bool
	}{
		{browserUA, false},
		{"Mozilla/5.0 (compatible; bingbot/2.0)", true},
		{"facebookexternalhit/1.1", true},
		{"Wget/1.21", true},
		{"", true},
	}

	for _, tt := range tests {
		if got := IsCrawler(tt.userAgent); got != tt.want {
			t.Errorf("IsCrawler(%q) = %v, want %v", tt.userAgent, got, tt.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"RemoteAddr", "192.0.2.1:1234", nil, "192.0.2.1"},
		{"IPv6 RemoteAddr", "[2001:db8::1]:443", nil, "2001:db8::1"},
		{"Forwarded", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.1"}, "198.51.100.7"},
		{"Real IP", "10.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.8"}, "198.51.100.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
