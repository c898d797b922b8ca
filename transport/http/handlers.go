package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthz reports liveness
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Authorize reports the verdict of an authenticated request. If the request
// reached this handler the middleware already verified it.
func Authorize(c *gin.Context) {
	verdict, exists := VerdictFromContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verdict not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"reason":     verdict.Reason,
	})
}

// Logout drops the session cookie on the client. The stored record is left
// to the store's own expiry.
func Logout(c *gin.Context) {
	ClearSessionCookie(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
