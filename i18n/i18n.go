// Package i18n resolves the site locale from paths, cookies and the
// Accept-Language header.
package i18n

import (
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// Locale is a supported site language
type Locale string

const (
	English Locale = "en"
	French  Locale = "fr"

	DefaultLocale = English

	// CookieName stores the last locale the visitor browsed in
	CookieName = "locale"

	// HeaderName carries the resolved locale to downstream handlers
	HeaderName = "X-Site-Locale"

	cookieMaxAge = 60 * 60 * 24 * 365
)

// LegacyPages are the unprefixed page paths that predate the locale
// segment. They redirect to the visitor's locale.
var LegacyPages = []string{"/", "/services", "/contact"}

// Locales lists the supported locales in display order
var Locales = []Locale{English, French}

var publicFilePattern = regexp.MustCompile(`\.[^/]+$`)

// IsLocale reports whether value is exactly a supported locale code
func IsLocale(value string) bool {
	for _, l := range Locales {
		if string(l) == value {
			return true
		}
	}
	return false
}

// Normalize trims and lower-cases value and returns it when supported
func Normalize(value string) (Locale, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if IsLocale(normalized) {
		return Locale(normalized), true
	}
	return "", false
}

func segments(pathname string) []string {
	var out []string
	for _, s := range strings.Split(pathname, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FromPath returns the locale named by the first path segment
func FromPath(pathname string) (Locale, bool) {
	segs := segments(pathname)
	if len(segs) == 0 {
		return "", false
	}
	return Normalize(segs[0])
}

// StripLocale removes a leading locale segment and trailing slashes:
// "/fr/services/" becomes "/services".
func StripLocale(pathname string) string {
	if pathname == "" {
		return "/"
	}

	segs := segments(pathname)
	if len(segs) == 0 {
		return "/"
	}

	if IsLocale(segs[0]) {
		next := "/" + strings.Join(segs[1:], "/")
		if next == "/" {
			return "/"
		}
		return strings.TrimRight(next, "/")
	}

	if pathname == "/" {
		return "/"
	}
	return strings.TrimRight(pathname, "/")
}

// WithLocale prefixes pathname with the locale segment
func WithLocale(locale Locale, pathname string) string {
	base := ""
	if pathname != "/" {
		base = strings.TrimRight(pathname, "/")
	}
	return "/" + string(locale) + base
}

// DetectPreferred picks the best supported locale from an
// Accept-Language header, highest quality first.
func DetectPreferred(acceptLanguage string) Locale {
	if strings.TrimSpace(acceptLanguage) == "" {
		return DefaultLocale
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return DefaultLocale
	}

	for _, tag := range tags {
		base, _ := tag.Base()
		switch base.String() {
		case "fr":
			return French
		case "en":
			return English
		}
	}
	return DefaultLocale
}

// FromRequest resolves the locale for r: the locale cookie wins, then
// Accept-Language.
func FromRequest(r *http.Request) Locale {
	if c, err := r.Cookie(CookieName); err == nil {
		if l, ok := Normalize(c.Value); ok {
			return l
		}
	}
	return DetectPreferred(r.Header.Get("Accept-Language"))
}

// Redirect sends an unprefixed page request to the same page under the
// visitor's preferred locale, keeping the query string.
func Redirect(w http.ResponseWriter, r *http.Request) {
	target := WithLocale(FromRequest(r), r.URL.Path)
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	w.Header().Add("Vary", "Cookie")
	w.Header().Add("Vary", "Accept-Language")
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// Middleware tags locale-prefixed page requests with the X-Site-Locale
// header and refreshes the locale cookie. API and static file requests
// pass through untouched. It must wrap the whole router, not be
// registered with Use, so that it also sees paths no route matches.
func Middleware(secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/_next/") || publicFilePattern.MatchString(p) {
				next.ServeHTTP(w, r)
				return
			}

			locale, ok := FromPath(p)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			r.Header.Set(HeaderName, string(locale))
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    string(locale),
				Path:     "/",
				MaxAge:   cookieMaxAge,
				SameSite: http.SameSiteLaxMode,
				Secure:   secureCookies,
			})

			next.ServeHTTP(w, r)
		})
	}
}
