package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveScan(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveScan("checked_in")
	m.ObserveScan("checked_in")
	m.ObserveScan("error")

	if got := testutil.ToFloat64(m.Scans.WithLabelValues("checked_in")); got != 2 {
		t.Fatalf("checked_in = %v", got)
	}
	if got := testutil.ToFloat64(m.Scans.WithLabelValues("error")); got != 1 {
		t.Fatalf("error = %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveScan("checked_in")
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/squads/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/api/squads/1", "/api/squads/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if n := testutil.CollectAndCount(m.Requests); n != 2 {
		t.Fatalf("expected 2 label sets, got %d", n)
	}
}
