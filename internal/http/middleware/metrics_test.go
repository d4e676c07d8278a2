package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndUnmatchedLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.POST("/messages", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/messages", "202"))
	baseMiss := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"x":1}`)))
	if w.Code != http.StatusAccepted {
		t.Fatalf("POST /messages -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/123456", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /users/123456 -> %d", w.Code)
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/messages", "202")); got != baseOK+1 {
		t.Fatalf("counter /messages = %v; want %v", got, baseOK+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404")); got != baseMiss+1 {
		t.Fatalf("counter unmatched = %v; want %v", got, baseMiss+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/users/123456", "404")); got != 0 {
		t.Fatalf("raw path must not be a label value")
	}
	if testutil.CollectAndCount(httpReqSize) == 0 {
		t.Fatalf("request size histogram not observed")
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}
