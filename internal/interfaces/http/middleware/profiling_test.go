package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/taic/backend/internal/infrastructure/telemetry"
)

func TestDefaultProfilingConfig(t *testing.T) {
	cfg := DefaultProfilingConfig()

	assert.True(t, cfg.Enabled)
	assert.Contains(t, cfg.SkipPaths, "/health")
	assert.Contains(t, cfg.SkipPaths, "/healthz")
	assert.Contains(t, cfg.SkipPaths, "/ready")
	assert.Contains(t, cfg.SkipPaths, "/metrics")
	assert.Contains(t, cfg.SkipPathPrefixes, "/swagger")
	assert.Contains(t, cfg.SkipPathPrefixes, "/api-docs")
}

func TestProfilingWithConfig_Disabled(t *testing.T) {
	r := gin.New()
	handlerCalled := false
	r.Use(ProfilingWithConfig(ProfilingConfig{Enabled: false}))
	r.GET("/api/v1/products", func(c *gin.Context) {
		handlerCalled = true
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handlerCalled)
}

func TestProfilingWithConfig_SkippedAndLabeledPaths(t *testing.T) {
	// Skipped or not, the handler must always run.
	paths := []string{
		"/health",
		"/metrics",
		"/swagger/index.html",
		"/api-docs/v1",
		"/api/v1/products",
		"/health/check",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			r := gin.New()
			handlerCalled := false
			r.Use(ProfilingWithConfig(DefaultProfilingConfig()))
			r.GET(path, func(c *gin.Context) {
				handlerCalled = true
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, handlerCalled)
		})
	}
}

func TestProfilingWithConfig_PreservesGinContext(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("request_id", "gw-req-1")
		c.Next()
	})
	r.Use(ProfilingWithConfig(DefaultProfilingConfig()))
	r.GET("/api/v1/products", func(c *gin.Context) {
		value, exists := c.Get("request_id")
		assert.True(t, exists)
		assert.Equal(t, "gw-req-1", value)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfilingWithConfig_MiddlewareOrderUnchanged(t *testing.T) {
	r := gin.New()
	var order []string

	r.Use(func(c *gin.Context) {
		order = append(order, "outer")
		c.Next()
		order = append(order, "outer_after")
	})
	r.Use(ProfilingWithConfig(DefaultProfilingConfig()))
	r.Use(func(c *gin.Context) {
		order = append(order, "inner")
		c.Next()
		order = append(order, "inner_after")
	})
	r.GET("/api/v1/orders", func(c *gin.Context) {
		order = append(order, "handler")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"outer", "inner", "handler", "inner_after", "outer_after"}, order)
}

func TestProfilingLabels(t *testing.T) {
	t.Run("seller request carries all four labels", func(t *testing.T) {
		r := gin.New()
		var labels map[string]string

		r.Use(func(c *gin.Context) {
			c.Set(JWTMerchantIDKey, "3f7c9a4e-seller")
			c.Next()
		})
		r.GET("/api/v1/seller/products/:id", func(c *gin.Context) {
			labels = profilingLabels(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/seller/products/sku-9", nil))

		assert.Equal(t, "GET", labels[telemetry.ProfilingLabelMethod])
		assert.Equal(t, "/api/v1/seller/products/:id", labels[telemetry.ProfilingLabelRoute])
		assert.Equal(t, "seller", labels[telemetry.ProfilingLabelController])
		assert.Equal(t, "3f7c9a4e-seller", labels[telemetry.ProfilingLabelMerchantID])
	})

	t.Run("anonymous request omits merchant_id", func(t *testing.T) {
		r := gin.New()
		var labels map[string]string

		r.GET("/api/v1/products", func(c *gin.Context) {
			labels = profilingLabels(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

		assert.Equal(t, "products", labels[telemetry.ProfilingLabelController])
		assert.NotContains(t, labels, telemetry.ProfilingLabelMerchantID)
	})

	t.Run("wrong-typed merchant claim is ignored", func(t *testing.T) {
		r := gin.New()
		var labels map[string]string

		r.Use(func(c *gin.Context) {
			c.Set(JWTMerchantIDKey, 12345)
			c.Next()
		})
		r.GET("/api/v1/products", func(c *gin.Context) {
			labels = profilingLabels(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

		assert.NotContains(t, labels, telemetry.ProfilingLabelMerchantID)
	})
}

func TestControllerFromRoute(t *testing.T) {
	testCases := []struct {
		route    string
		expected string
	}{
		{"/api/v1/products", "products"},
		{"/api/v1/products/:id", "products"},
		{"/api/v1/orders/:id/invoice", "orders"},
		{"/api/v2/merchants", "merchants"},
		{"/api/products", "products"},
		{"/v1/payouts", "payouts"},
		{"/health", "health"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.route, func(t *testing.T) {
			assert.Equal(t, tc.expected, controllerFromRoute(tc.route))
		})
	}
}

func TestIsVersionSegment(t *testing.T) {
	testCases := []struct {
		segment  string
		expected bool
	}{
		{"v1", true},
		{"v2", true},
		{"v10", true},
		{"V3", true},
		{"v", false},
		{"version", false},
		{"v1a", false},
		{"products", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.segment, func(t *testing.T) {
			assert.Equal(t, tc.expected, isVersionSegment(tc.segment))
		})
	}
}
