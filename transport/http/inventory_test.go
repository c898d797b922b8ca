package http_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	transport "github.com/layer-3/turnstile/transport/http"
)

func TestInventoryProxy(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Query().Get("mode") {
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "max-age=60")
			_, _ = w.Write([]byte(`{"agents":[{"hostname":"rack-01"}]}`))
		}
	}))
	defer upstream.Close()

	verifier, _ := newVerifier(t)
	proxy := transport.NewInventoryProxy(upstream.URL, nil)
	router := transport.SetupRouter(verifier, proxy, zerolog.Nop())

	t.Run("requires authentication", func(t *testing.T) {
		before := hits.Load()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, before, hits.Load())
	})

	t.Run("relays the upstream body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
		req.Header.Set("Authorization", basic(testSecret))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"agents":[{"hostname":"rack-01"}]}`, rec.Body.String())
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})

	t.Run("cacheable responses are served from cache", func(t *testing.T) {
		before := hits.Load()
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
			req.Header.Set("Authorization", basic(testSecret))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}
		require.Equal(t, before, hits.Load())
	})

	t.Run("upstream failure is a bad gateway", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/inventory?mode=broken", nil)
		req.Header.Set("Authorization", basic(testSecret))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.Equal(t, "inventory unavailable", decodeError(t, rec))
	})
}

func TestInventoryProxy_Unreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	router := gin.New()
	router.GET("/", transport.NewInventoryProxy(url, http.DefaultClient).Inventory)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestInventoryProxy_NotConfigured(t *testing.T) {
	verifier, _ := newVerifier(t)
	router := transport.SetupRouter(verifier, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	req.Header.Set("Authorization", basic(testSecret))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
