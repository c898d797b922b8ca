package http

import (
	"fmt"
	"net/http"

	"filippo.io/csrf"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/layer-3/turnstile/internal/logger"
)

// SetupRouter sets up the Gin router
func SetupRouter(verifier Verifier, inventory *InventoryProxy, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(logger.GinRequests(log), gin.Recovery())

	router.GET("/healthz", Healthz)

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(verifier, DispatcherOptions{}))
	{
		api.GET("/authorize", Authorize)
		api.GET("/inventory", inventory.Inventory)
		api.POST("/logout", Logout)
	}

	return router
}

// NewHandler wraps the router with CORS and cross-origin request forgery
// protection. Allowed CORS origins are also trusted by the CSRF check.
func NewHandler(router http.Handler, allowedOrigins []string) (http.Handler, error) {
	protection := csrf.New()
	for _, origin := range allowedOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid trusted origin %q: %w", origin, err)
		}
	}

	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true, // Required for cookie-based authentication
	})

	return middleware.Handler(protection.Handler(router)), nil
}
