package metric

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	favicon   = "/favicon.ico"
	noRoute   = "noroute"
	pathLabel = "path"
)

// Prometheus contains the metrics gathered by the API requests
type Prometheus struct {
	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec
	skip   map[string]bool
}

// NewPrometheus generates the request metrics of the API.  Requests to the
// skipPaths are not measured.
func NewPrometheus(skipPaths ...string) (*Prometheus, error) {
	reqCnt := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceAPI,
			Name:      "requests_total",
			Help:      "How many HTTP requests processed, partitioned by status code, method and route",
		},
		[]string{"code", "method", pathLabel},
	)
	if err := prometheus.Register(reqCnt); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		reqCnt = are.ExistingCollector.(*prometheus.CounterVec)
	}
	reqDur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespaceAPI,
			Name:      "request_duration_seconds",
			Help:      "The HTTP request latencies in seconds",
		},
		[]string{"code", "method", pathLabel},
	)
	if err := prometheus.Register(reqDur); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		reqDur = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	skip := map[string]bool{favicon: true}
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &Prometheus{
		reqCnt: reqCnt,
		reqDur: reqDur,
		skip:   skip,
	}, nil
}

// PrometheusMiddleware creates the prometheus collector and
// defines status handler function for the middleware
func PrometheusMiddleware(skipPaths ...string) (gin.HandlerFunc, error) {
	p, err := NewPrometheus(skipPaths...)
	if err != nil {
		return nil, err
	}
	return p.Middleware(), nil
}

// Middleware defines status handler function for middleware.  Requests are
// labeled with the route pattern, not the raw path, so that path parameters
// don't create new series.
func (p *Prometheus) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p.skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		elapsed := float64(time.Since(start)) / float64(time.Second)
		fullPath := c.FullPath()
		if fullPath == "" {
			fullPath = noRoute
		}

		p.reqDur.WithLabelValues(status, c.Request.Method, fullPath).Observe(elapsed)
		p.reqCnt.WithLabelValues(status, c.Request.Method, fullPath).Inc()
	}
}
