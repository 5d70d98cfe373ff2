package auth

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

const sessionCookieMaxAge = 30 * 24 * time.Hour

// CookieWriter sets and clears the session cookie. Attach and Detach must
// emit identical Path/Secure/SameSite attributes: a clear with different
// attributes than the original set silently fails to remove the cookie in
// some clients.
type CookieWriter struct {
	production bool
}

func NewCookieWriter(production bool) *CookieWriter {
	return &CookieWriter{production: production}
}

func (c *CookieWriter) sameSite() http.SameSite {
	if c.production {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

func (c *CookieWriter) Attach(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.production,
		SameSite: c.sameSite(),
	})
}

func (c *CookieWriter) Detach(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.production,
		SameSite: c.sameSite(),
	})
}

// ExtractToken pulls the session token from the request: cookie first, then
// the Authorization bearer header for non-browser clients.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
