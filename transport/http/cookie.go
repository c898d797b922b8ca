package http

import (
	"net/http"
	"time"

	"github.com/layer-3/turnstile/service"
)

// SessionCookieLifetime is how long browsers keep the session cookie
const SessionCookieLifetime = 30 * 24 * time.Hour

// SetSessionCookie issues the host-locked session cookie. __Host- cookies
// must be Secure, have Path "/" and no Domain.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     service.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionCookieLifetime.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     service.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
