package app

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func guardedRouter(password string) *gin.Engine {
	router := gin.New()
	router.GET("/metrics", basicAuth("metrics", "prometheus", password), func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})
	return router
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestBasicAuth_OpenWithoutPassword(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	guardedRouter("").ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "metrics", w.Body.String())
}

func TestBasicAuth(t *testing.T) {
	router := guardedRouter("s3cret")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", basicHeader("prometheus", "s3cret"), http.StatusOK},
		{"wrong user", basicHeader("grafana", "s3cret"), http.StatusUnauthorized},
		{"wrong password", basicHeader("prometheus", "guess"), http.StatusUnauthorized},
		{"password prefix", basicHeader("prometheus", "s3c"), http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"bare scheme", "Basic", http.StatusUnauthorized},
		{"bad base64", "Basic notbase64!!!", http.StatusUnauthorized},
		{"bearer", "Bearer token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="metrics"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
