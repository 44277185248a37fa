package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newSwaggerRouter(cfg SwaggerConfig, jwt gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, jwt), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "docs"})
	})
	return router
}

func getSwagger(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/swagger/index.html", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection(t *testing.T) {
	t.Run("disabled docs answer 404", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{Enabled: false}, nil)

		w := getSwagger(router, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "not_found")
	})

	t.Run("enabled without restrictions serves docs", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{Enabled: true}, nil)

		assert.Equal(t, http.StatusOK, getSwagger(router, "").Code)
	})

	t.Run("whitelisted IP is admitted", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:    true,
			AllowedIPs: []string{"127.0.0.1"},
		}, nil)

		assert.Equal(t, http.StatusOK, getSwagger(router, "127.0.0.1:12345").Code)
	})

	t.Run("non-whitelisted IP gets 403", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:    true,
			AllowedIPs: []string{"10.0.0.1"},
		}, nil)

		w := getSwagger(router, "192.168.1.1:12345")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "forbidden")
	})

	t.Run("CIDR whitelist matches the whole block", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:    true,
			AllowedIPs: []string{"10.0.0.0/8"},
		}, nil)

		assert.Equal(t, http.StatusOK, getSwagger(router, "10.50.100.200:12345").Code)
		assert.Equal(t, http.StatusForbidden, getSwagger(router, "192.168.1.1:12345").Code)
	})

	t.Run("auth requirement delegates to the JWT middleware", func(t *testing.T) {
		deny := func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		}
		router := newSwaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, deny)

		assert.Equal(t, http.StatusUnauthorized, getSwagger(router, "").Code)

		allow := func(c *gin.Context) {
			c.Set("user_id", "ops-user")
			c.Next()
		}
		router = newSwaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, allow)

		assert.Equal(t, http.StatusOK, getSwagger(router, "").Code)
	})

	t.Run("IP check runs before auth when both are configured", func(t *testing.T) {
		allow := func(c *gin.Context) {
			c.Set("user_id", "ops-user")
			c.Next()
		}
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:     true,
			RequireAuth: true,
			AllowedIPs:  []string{"127.0.0.1"},
		}, allow)

		assert.Equal(t, http.StatusOK, getSwagger(router, "127.0.0.1:12345").Code)
		assert.Equal(t, http.StatusForbidden, getSwagger(router, "192.168.1.1:12345").Code)
	})
}

func TestIsIPAllowed(t *testing.T) {
	tests := []struct {
		name        string
		ip          string
		allowedIPs  []string
		allowedCIDR []string
		want        bool
	}{
		{name: "exact IP match", ip: "192.168.1.1", allowedIPs: []string{"192.168.1.1"}, want: true},
		{name: "no match", ip: "192.168.1.2", allowedIPs: []string{"192.168.1.1"}, want: false},
		{name: "CIDR match", ip: "10.0.0.5", allowedCIDR: []string{"10.0.0.0/8"}, want: true},
		{name: "CIDR no match", ip: "11.0.0.5", allowedCIDR: []string{"10.0.0.0/8"}, want: false},
		{name: "IPv6 localhost", ip: "::1", allowedIPs: []string{"::1"}, want: true},
		{name: "nil IP rejected", ip: "garbage", allowedIPs: []string{"192.168.1.1"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var allowedIPs []net.IP
			for _, ipStr := range tt.allowedIPs {
				if ip := net.ParseIP(ipStr); ip != nil {
					allowedIPs = append(allowedIPs, ip)
				}
			}
			var allowedNets []*net.IPNet
			for _, cidr := range tt.allowedCIDR {
				if _, network, err := net.ParseCIDR(cidr); err == nil {
					allowedNets = append(allowedNets, network)
				}
			}

			assert.Equal(t, tt.want, isIPAllowed(net.ParseIP(tt.ip), allowedIPs, allowedNets))
		})
	}
}
