package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within the limit", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow("10.0.0.1"), "request %d should pass", i+1)
		}
	})

	t.Run("blocks once the limit is exhausted", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("10.0.0.2"))
		}
		assert.False(t, limiter.Allow("10.0.0.2"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute)

		assert.True(t, limiter.Allow("buyer-a"))
		assert.True(t, limiter.Allow("buyer-a"))
		assert.False(t, limiter.Allow("buyer-a"))

		assert.True(t, limiter.Allow("buyer-b"))
		assert.True(t, limiter.Allow("buyer-b"))
	})

	t.Run("window elapse refills the bucket", func(t *testing.T) {
		limiter := NewRateLimiter(2, 50*time.Millisecond)

		assert.True(t, limiter.Allow("10.0.0.3"))
		assert.True(t, limiter.Allow("10.0.0.3"))
		assert.False(t, limiter.Allow("10.0.0.3"))

		time.Sleep(60 * time.Millisecond)
		assert.True(t, limiter.Allow("10.0.0.3"))
	})

	t.Run("remaining tracks consumed tokens", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		assert.Equal(t, 5, limiter.Remaining("10.0.0.4"))
		limiter.Allow("10.0.0.4")
		limiter.Allow("10.0.0.4")
		assert.Equal(t, 3, limiter.Remaining("10.0.0.4"))
	})

	t.Run("concurrent callers never exceed the limit", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)
		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("shared-ip") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, 100, allowed)
	})
}

func TestRateLimit(t *testing.T) {
	newRouter := func(limiter *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
		router := gin.New()
		for _, mw := range pre {
			router.Use(mw)
		}
		router.Use(RateLimit(limiter))
		router.GET("/api/v1/products", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("passes requests within the limit and sets headers", func(t *testing.T) {
		router := newRouter(NewRateLimiter(3, time.Minute))

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products", nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		}
	})

	t.Run("returns 429 with RATE_LIMIT_EXCEEDED beyond the limit", func(t *testing.T) {
		router := newRouter(NewRateLimiter(2, time.Minute))

		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("authenticated users get per-user budgets", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		currentUser := "buyer-1"
		router := newRouter(limiter, func(c *gin.Context) {
			c.Set(JWTUserIDKey, currentUser)
			c.Next()
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		// A different user from the same IP is unaffected.
		currentUser = "buyer-2"
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/products", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthRateLimit(t *testing.T) {
	newAuthRouter := func(limiter *RateLimiter) *gin.Engine {
		router := gin.New()
		router.Use(AuthRateLimit(limiter))
		router.POST("/api/v1/auth/login", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})
		return router
	}

	login := func(router *gin.Engine, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("allows attempts within the limit with headers", func(t *testing.T) {
		router := newAuthRouter(NewRateLimiter(5, time.Minute))

		w := login(router, "192.168.1.100:12345")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("blocks with auth-specific error and Retry-After", func(t *testing.T) {
		router := newAuthRouter(NewRateLimiter(1, time.Minute))

		assert.Equal(t, http.StatusOK, login(router, "192.168.1.100:12345").Code)

		w := login(router, "192.168.1.100:12345")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "AUTH_RATE_LIMIT_EXCEEDED")
		assert.Contains(t, w.Body.String(), "Too many authentication attempts")
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
	})

	t.Run("limits per source IP", func(t *testing.T) {
		router := newAuthRouter(NewRateLimiter(2, time.Minute))

		assert.Equal(t, http.StatusOK, login(router, "192.168.1.1:12345").Code)
		assert.Equal(t, http.StatusOK, login(router, "192.168.1.1:12345").Code)
		assert.Equal(t, http.StatusTooManyRequests, login(router, "192.168.1.1:12345").Code)

		assert.Equal(t, http.StatusOK, login(router, "192.168.1.2:12345").Code)
	})

	t.Run("auth keys do not collide with the general limiter key space", func(t *testing.T) {
		// One shared limiter: exhausting auth attempts must not block plain
		// API calls from the same IP, because auth keys carry a prefix.
		limiter := NewRateLimiter(2, time.Minute)

		router := gin.New()
		authGroup := router.Group("/api/v1/auth")
		authGroup.Use(AuthRateLimit(limiter))
		authGroup.POST("/login", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})
		apiGroup := router.Group("/api/v1")
		apiGroup.Use(RateLimit(limiter))
		apiGroup.GET("/products", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"items": []string{}})
		})

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
			req.RemoteAddr = "192.168.1.100:12345"
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		req = httptest.NewRequest("GET", "/api/v1/products", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
