package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/layer-3/turnstile/core"
)

const verdictKey = "turnstile.verdict"

// Verifier produces a verdict for a request
type Verifier interface {
	VerifyRequest(r *http.Request) core.Verdict
}

// SuccessFunc runs once a request has been verified. newToken is empty
// unless a session was minted for this request.
type SuccessFunc func(c *gin.Context, newToken string)

// ErrorFunc runs when a request has been rejected
type ErrorFunc func(c *gin.Context, reason string)

// DispatcherOptions configures AuthMiddleware. Nil callbacks fall back to
// ContinueOnSuccess and RejectUnauthorized.
type DispatcherOptions struct {
	OnSuccess SuccessFunc
	OnError   ErrorFunc
}

// AuthMiddleware verifies every request and branches to the success or
// error callback. A freshly minted token is written as the session cookie
// before the success callback runs.
func AuthMiddleware(verifier Verifier, opts DispatcherOptions) gin.HandlerFunc {
	onSuccess := opts.OnSuccess
	if onSuccess == nil {
		onSuccess = ContinueOnSuccess
	}
	onError := opts.OnError
	if onError == nil {
		onError = RejectUnauthorized
	}

	return func(c *gin.Context) {
		verdict, ok := safeVerify(c, verifier)
		if !ok {
			onError(c, core.ReasonInternalAuthFailed)
			return
		}

		if !verdict.Verified {
			onError(c, verdict.Reason)
			return
		}

		c.Set(verdictKey, verdict)
		if verdict.NewToken != "" {
			SetSessionCookie(c.Writer, verdict.NewToken)
		}
		onSuccess(c, verdict.NewToken)
	}
}

// safeVerify turns a panic inside the verifier into a failed verification
func safeVerify(c *gin.Context, verifier Verifier) (verdict core.Verdict, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(c.Request.Context()).Error().
				Interface("panic", r).
				Msg("Authentication panicked")
			verdict, ok = core.Verdict{}, false
		}
	}()

	return verifier.VerifyRequest(c.Request), true
}

// ContinueOnSuccess hands the request to the next handler
func ContinueOnSuccess(c *gin.Context, _ string) {
	c.Next()
}

// RejectUnauthorized aborts with 401 and the reason as the error message
func RejectUnauthorized(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
}

// VerdictFromContext returns the verdict stored by AuthMiddleware
func VerdictFromContext(c *gin.Context) (core.Verdict, bool) {
	v, exists := c.Get(verdictKey)
	if !exists {
		return core.Verdict{}, false
	}
	verdict, ok := v.(core.Verdict)
	return verdict, ok
}
