package middleware

import (
	"net/http"

	"github.com/CharlesToronto/brotherstudio/security"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AdminCodeHeader carries the admin unlock code
const AdminCodeHeader = "X-Admin-Code"

// AdminLock gates admin endpoints behind a shared unlock code. It is a
// convenience lock for the studio's own dashboard, not user
// authentication.
type AdminLock struct {
	codeHash []byte
	enabled  bool
}

// NewAdminLock creates the lock. codeHash is a bcrypt hash of the code.
func NewAdminLock(codeHash string, enabled bool) *AdminLock {
	if enabled && codeHash == "" {
		log.Warn().Msg("Admin lock enabled but no code hash configured - admin routes will be inaccessible")
	}
	return &AdminLock{
		codeHash: []byte(codeHash),
		enabled:  enabled,
	}
}

// Protect wraps an HTTP handler with the admin lock
func (a *AdminLock) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}

		if len(a.codeHash) == 0 {
			log.Warn().Str("path", r.URL.Path).Msg("Admin route accessed but no code hash configured")
			writeJSONError(w, http.StatusServiceUnavailable, "Admin lock not configured")
			return
		}

		code := r.Header.Get(AdminCodeHeader)
		if code == "" {
			log.Warn().
				Str("path", r.URL.Path).
				Str("ip", security.ClientIP(r)).
				Msg("Admin route accessed without code")
			writeJSONError(w, http.StatusUnauthorized, "Missing admin code. Provide it via the X-Admin-Code header")
			return
		}

		if err := bcrypt.CompareHashAndPassword(a.codeHash, []byte(code)); err != nil {
			log.Warn().
				Str("path", r.URL.Path).
				Str("ip", security.ClientIP(r)).
				Msg("Admin route accessed with invalid code")
			writeJSONError(w, http.StatusForbidden, "Invalid admin code")
			return
		}

		next.ServeHTTP(w, r)
	})
}
