package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"bot-api-relay/internal/metrics"
)

// requestCount returns the bot_api_relay_http_requests_total value for the
// given labels, or -1 if the series does not exist.
func requestCount(t *testing.T, m *metrics.Metrics, method, status, prefix string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() != "bot_api_relay_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["method"] == method && labels["status_code"] == status && labels["path_prefix"] == prefix {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return -1
}

func TestMetricsMiddleware_CountsByPrefix(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/file/bot:token/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "file")
	})
	e.Any("/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "relayed")
	})

	tests := []struct {
		method string
		path   string
		prefix string
	}{
		{http.MethodGet, "/file/bot1:A/photos/a.jpg", "/file"},
		{http.MethodPost, "/bot1:A/sendMessage", "/bot"},
		{http.MethodGet, "/somewhere", "other"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, http.StatusOK)
		}
	}

	for _, tt := range tests {
		if got := requestCount(t, m, tt.method, "200", tt.prefix); got != 1 {
			t.Errorf("count{%s,200,%s} = %v, want 1", tt.method, tt.prefix, got)
		}
	}
}

func TestMetricsMiddleware_RecordsDuration(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() != "bot_api_relay_http_request_duration_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			if metric.GetHistogram().GetSampleCount() > 0 {
				return
			}
		}
	}
	t.Error("expected bot_api_relay_http_request_duration_seconds with at least one sample")
}

func TestMetricsMiddleware_HTTPErrorStatus(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/file/bot:token/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})

	req := httptest.NewRequest(http.MethodGet, "/file/bot1/missing.jpg", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := requestCount(t, m, http.MethodGet, "404", "/file"); got != 1 {
		t.Errorf("count{GET,404,/file} = %v, want 1", got)
	}
}

func TestMetricsMiddleware_RouterNotFound(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	// No routes registered; request should yield 404.

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if got := requestCount(t, m, http.MethodGet, "404", "other"); got != 1 {
		t.Errorf("count{GET,404,other} = %v, want 1", got)
	}
}

func TestMetricsMiddleware_InFlightReturnsToZero(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for range 3 {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	}

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == "bot_api_relay_http_requests_in_flight" {
			if v := f.GetMetric()[0].GetGauge().GetValue(); v != 0 {
				t.Errorf("in-flight = %v, want 0", v)
			}
			return
		}
	}
	t.Error("expected bot_api_relay_http_requests_in_flight")
}
