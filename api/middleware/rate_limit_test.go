package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"))
	}
	assert.False(t, rl.Allow("10.0.0.1"))

	// Other keys keep their own budget
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestEndpointRateLimiter_LimitsConfiguredPathOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)

	erl := NewEndpointRateLimiter()
	erl.AddEndpoint("/api/diagnose", 2, time.Minute)

	router := gin.New()
	router.Use(erl.Middleware())
	router.POST("/api/diagnose", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/history", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/diagnose"))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/diagnose"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "/api/diagnose"))

	// Unconfigured paths are never throttled by the endpoint limiter
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/history"))
	}
}
