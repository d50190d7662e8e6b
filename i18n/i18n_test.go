package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input  string
		want   Locale
		wantOK bool
	}{
		{"en", English, true},
		{" FR ", French, true},
		{"de", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := Normalize(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Normalize(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path   string
		want   Locale
		wantOK bool
	}{
		{"/fr/contact", French, true},
		{"/en", English, true},
		{"/EN/services", English, true},
		{"/", "", false},
		{"/services", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := FromPath(tt.path)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("FromPath(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStripLocale(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/fr", "/"},
		{"/fr/", "/"},
		{"/fr/services/", "/services"},
		{"/en/contact", "/contact"},
		{"/services/", "/services"},
		{"/de/page", "/de/page"},
	}

	for _, tt := range tests {
		if got := StripLocale(tt.path); got != tt.want {
			t.Errorf("StripLocale(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestWithLocale(t *testing.T) {
	if got := WithLocale(French, "/"); got != "/fr" {
		t.Errorf("WithLocale(fr, /) = %q", got)
	}
	if got := WithLocale(English, "/services/"); got != "/en/services" {
		t.Errorf("WithLocale(en, /services/) = %q", got)
	}
}

func TestDetectPreferred(t *testing.T) {
	tests := []struct {
		header string
		want   Locale
	}{
		{"", English},
		{"fr-CA,fr;q=0.9,en;q=0.8", French},
		{"en-US,en;q=0.9,fr;q=0.8", English},
		{"de-DE,fr;q=0.5,en;q=0.3", French},
		{"en;q=0.2,fr;q=0.7", French},
		{"de,es", English},
		{"not a header;;;", English},
	}

	for _, tt := range tests {
		if got := DetectPreferred(tt.header); got != tt.want {
			t.Errorf("DetectPreferred(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestFromRequest_CookieWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US")
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "fr"})

	if got := FromRequest(req); got != French {
		t.Errorf("FromRequest() = %q, want fr", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr-FR")
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "xx"})

	if got := FromRequest(req); got != French {
		t.Errorf("FromRequest() with bad cookie = %q, want fr from header", got)
	}
}

func TestMiddleware(t *testing.T) {
	var seen string
	handler := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(HeaderName)
	}))

	tests := []struct {
		path       string
		wantLocale string
		wantCookie bool
	}{
		{"/fr/services", "fr", true},
		{"/en", "en", true},
		{"/services", "", false},
		{"/api/gallery", "", false},
		{"/fr/logo.svg", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			seen = ""
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if seen != tt.wantLocale {
				t.Errorf("%s header = %q, want %q", HeaderName, seen, tt.wantLocale)
			}

			cookies := w.Result().Cookies()
			if tt.wantCookie {
				if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != tt.wantLocale || !cookies[0].Secure {
					t.Errorf("Unexpected cookies: %+v", cookies)
				}
			} else if len(cookies) != 0 {
				t.Errorf("Expected no cookies, got %+v", cookies)
			}
		})
	}
}

func TestRedirect(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		cookie         string
		acceptLanguage string
		want           string
	}{
		{"Root defaults to English", "/", "", "", "/en"},
		{"Accept-Language", "/services", "", "fr-CA,fr;q=0.9", "/fr/services"},
		{"Cookie wins", "/contact", "en", "fr-FR", "/en/contact"},
		{"Query kept", "/services?ref=card", "fr", "", "/fr/services?ref=card"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tt.acceptLanguage)
			}
			w := httptest.NewRecorder()

			Redirect(w, req)

			if w.Code != http.StatusTemporaryRedirect {
				t.Fatalf("Expected status 307, got %d", w.Code)
			}
			if got := w.Header().Get("Location"); got != tt.want {
				t.Errorf("Location = %q, want %q", got, tt.want)
			}
		})
	}
}

// newSiteRouter wires the locale handling the way the server does
func newSiteRouter() http.Handler {
	r := mux.NewRouter()
	for _, page := range LegacyPages {
		r.HandleFunc(page, Redirect).Methods("GET", "HEAD")
	}
	r.HandleFunc("/api/gallery", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	return Middleware(false)(r)
}

func TestMiddleware_WrapsRouter(t *testing.T) {
	router := newSiteRouter()

	tests := []struct {
		name       string
		path       string
		wantCode   int
		wantCookie string
	}{
		{"Unrouted locale page", "/fr/contact", http.StatusNotFound, "fr"},
		{"Locale root", "/en", http.StatusNotFound, "en"},
		{"Legacy page", "/services", http.StatusTemporaryRedirect, ""},
		{"API route", "/api/gallery", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}

			var got string
			for _, c := range w.Result().Cookies() {
				if c.Name == CookieName {
					got = c.Value
				}
			}
			if got != tt.wantCookie {
				t.Errorf("locale cookie = %q, want %q", got, tt.wantCookie)
			}
		})
	}
}
