package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog"
)

// InventoryProxy forwards authenticated inventory requests to the upstream
// inventory service
type InventoryProxy struct {
	client   *http.Client
	upstream string
}

// NewCachingClient creates an HTTP client honouring upstream Cache-Control
// headers with an in-memory cache
func NewCachingClient() *http.Client {
	return &http.Client{
		Transport: httpcache.NewTransport(httpcache.NewMemoryCache()),
	}
}

// NewInventoryProxy creates a proxy. An empty upstream disables it.
func NewInventoryProxy(upstream string, client *http.Client) *InventoryProxy {
	if client == nil {
		client = NewCachingClient()
	}
	return &InventoryProxy{
		client:   client,
		upstream: upstream,
	}
}

// Inventory relays the upstream response body and status
func (p *InventoryProxy) Inventory(c *gin.Context) {
	if p == nil || p.upstream == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "inventory not configured"})
		return
	}

	target := p.upstream
	if c.Request.URL.RawQuery != "" {
		target += "?" + c.Request.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target, nil)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("Failed to build inventory request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "inventory unavailable"})
		return
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("Inventory request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "inventory unavailable"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Int("status", resp.StatusCode).Msg("Inventory upstream error")
		c.JSON(http.StatusBadGateway, gin.H{"error": "inventory unavailable"})
		return
	}

	c.DataFromReader(resp.StatusCode, resp.ContentLength, resp.Header.Get("Content-Type"), resp.Body, nil)
}
