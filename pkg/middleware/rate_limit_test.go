package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lendinghub/lending-service/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func get(r *gin.Engine, path, auth string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2)) // generous rate
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	require.Equal(t, http.StatusOK, get(r, "/ok", ""))
	require.Equal(t, http.StatusOK, get(r, "/ok", ""))
	require.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, get(r, "/limited", ""))
	require.Equal(t, http.StatusTooManyRequests, get(r, "/limited", ""))

	// one token is back after 200ms
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, http.StatusOK, get(r, "/limited", ""))
}

func TestRateLimitMiddleware_KeysByHolder(t *testing.T) {
	r := gin.New()
	r.Use(IdentityMiddleware(&fakeVerifier{}))
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/u", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, get(r, "/u", "Bearer user-token"))
	require.Equal(t, http.StatusTooManyRequests, get(r, "/u", "Bearer user-token"))
	// same client IP, different holder: separate bucket
	require.Equal(t, http.StatusOK, get(r, "/u", "Bearer admin-token"))
}
