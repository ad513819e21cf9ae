package httpapi

import (
	"crypto/subtle"
	"net/http"
)

// requestSecret pulls the caller's shared secret from, in order, the
// `secret` query parameter, the Sleepy-Secret header or the sleepy-secret
// cookie.
func requestSecret(r *http.Request) string {
	if v := r.URL.Query().Get("secret"); v != "" {
		return v
	}
	if v := r.Header.Get("Sleepy-Secret"); v != "" {
		return v
	}
	if c, err := r.Cookie("sleepy-secret"); err == nil {
		return c.Value
	}
	return ""
}

// requireSecret guards mutating endpoints. A mismatch is a plain rejection,
// not a retryable fault.
func (s *Server) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := requestSecret(r)
		if s.Cfg.Main.Secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.Cfg.Main.Secret)) != 1 {
			s.fail(w, r, http.StatusUnauthorized, "wrong secret", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
