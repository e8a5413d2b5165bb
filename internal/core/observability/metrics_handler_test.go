package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandler_Smoke(t *testing.T) {
	ExposeBuildInfo("test")
	ObserveHTTP("GET", "/data/{query}", 200, 0.001)

	body := scrape(t)
	if !strings.Contains(body, `app_build_info{version="test"} 1`) {
		t.Fatalf("missing app_build_info; got:\n%s", body)
	}
	if !strings.Contains(body, `http_requests_total{method="GET",route="/data/{query}",status="200"}`) {
		t.Fatalf("missing http_requests_total; got:\n%s", body)
	}
}

func TestAreaSelectMetrics_Labels(t *testing.T) {
	IncGesture("start")
	IncGesture("commit")
	IncFetch("ok")
	IncFetch("superseded")
	ObserveFetchLatency(0.02)
	ObserveCacheOp("get", errors.New("x"), 0.001)
	IncCacheHit("lru")
	IncAreaEvent("dropped")

	body := scrape(t)
	for _, want := range []string{
		`gestures_total{phase="start"}`,
		`gestures_total{phase="commit"}`,
		`fetch_total{outcome="superseded"}`,
		`fetch_duration_seconds_bucket`,
		`cache_op_total{op="get",result="error"}`,
		`cache_results_total{outcome="hit",tier="lru"}`,
		`area_events_total{result="dropped"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in:\n%s", want, body)
		}
	}
}
