package core

import "time"

// Reasons reported in a Verdict. They are safe to show to clients.
const (
	ReasonInvalidPattern     = "Invalid Authorization pattern"
	ReasonPasswordMismatch   = "Password does not match"
	ReasonHeaderVerified     = "Authorization header verified"
	ReasonNoCredentials      = "No Authorization header or session cookie found"
	ReasonCookieNotFound     = "Session cookie not found"
	ReasonCookieNotVerified  = "Session cookie is not verified"
	ReasonCookieVerified     = "Session cookie verified"
	ReasonInternalAuthFailed = "Internal authentication error"
)

// SessionRecord is a store-backed credential issued to a client
type SessionRecord struct {
	ID        string    // Store generated identifier, never used for lookups
	Token     string    // Opaque cookie value the record is keyed by
	Verified  bool      // Fixed at creation time
	CreatedAt time.Time // When the record was created
}

// Verdict is the outcome of verifying a single request
type Verdict struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason"`
	NewToken string `json:"newCookie,omitempty"` // Set only when a record was just minted
}

// Reject returns a failed verdict with the given reason
func Reject(reason string) Verdict {
	return Verdict{Reason: reason}
}
