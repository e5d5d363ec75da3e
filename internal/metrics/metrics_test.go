package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func TestSetPostsLoaded(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetPostsLoaded("ko", 12)
	c.SetPostsLoaded("ko", 7)
	c.SetPostsLoaded("en", 3)

	mf := gather(t, reg, "quire_posts_loaded")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 locales, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		want := map[string]float64{"ko": 7, "en": 3}[m.GetLabel()[0].GetValue()]
		if got := m.GetGauge().GetValue(); got != want {
			t.Errorf("posts_loaded{%s} = %v, want %v", m.GetLabel()[0].GetValue(), got, want)
		}
	}
}

func TestRecordReload(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReload(ReloadOK, 100*time.Millisecond)
	c.RecordReload(ReloadOK, 200*time.Millisecond)
	c.RecordReload(ReloadFailed, time.Millisecond)

	mf := gather(t, reg, "quire_reload_total")
	for _, m := range mf.GetMetric() {
		switch m.GetLabel()[0].GetValue() {
		case ReloadOK:
			if v := m.GetCounter().GetValue(); v != 2 {
				t.Errorf("reload_total{ok} = %v, want 2", v)
			}
		case ReloadFailed:
			if v := m.GetCounter().GetValue(); v != 1 {
				t.Errorf("reload_total{failed} = %v, want 1", v)
			}
		}
	}

	h := gather(t, reg, "quire_reload_duration_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 3 {
		t.Errorf("sample_count = %d, want 3", h.GetSampleCount())
	}
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	h := Middleware(c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, p := range []string{"/a", "/b", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	mf := gather(t, reg, "quire_http_requests_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	if got["200"] != 2 || got["404"] != 1 {
		t.Errorf("http_requests_total = %v", got)
	}
}

func TestHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.SetPostsLoaded("ko", 1)
	c.RecordReload(ReloadOK, time.Millisecond)
	c.RecordHTTPStatus(200)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{"quire_posts_loaded", "quire_reload_total", "quire_http_requests_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("response body does not contain %q", name)
		}
	}
}
