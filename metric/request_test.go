package metric

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p, err := NewPrometheus("/health")
	require.NoError(t, err)
	engine := gin.New()
	engine.Use(p.Middleware())
	engine.GET("/v1/rounds/:roundId", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("roundId")})
	})
	engine.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, path := range []string{"/v1/rounds/1", "/v1/rounds/2", "/health", "/nope"} {
		w := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, path, nil)
		require.NoError(t, err)
		engine.ServeHTTP(w, req)
	}

	assert.Equal(t, float64(2),
		testutil.ToFloat64(p.reqCnt.WithLabelValues("200", "GET", "/v1/rounds/:roundId")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(p.reqCnt.WithLabelValues("404", "GET", noRoute)))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(p.reqCnt.WithLabelValues("200", "GET", "/health")))
}
