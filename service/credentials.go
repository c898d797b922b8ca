package service

import (
	"net/http"
)

const (
	// SessionCookieName is host-locked: no Domain, Path "/", Secure only
	SessionCookieName = "__Host-session"

	authorizationHeader = "Authorization"
	basicScheme         = "Basic "
)

// Credentials is the raw authentication material carried by a request
type Credentials struct {
	Authorization string // Inline credential, e.g. "Basic c2VjcmV0"
	SessionToken  string // Value of the session cookie
}

// ExtractCredentials pulls the inline credential and the session token out
// of a request. Missing values are returned as empty strings.
func ExtractCredentials(r *http.Request) Credentials {
	creds := Credentials{
		Authorization: r.Header.Get(authorizationHeader),
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		creds.SessionToken = cookie.Value
	}

	return creds
}
