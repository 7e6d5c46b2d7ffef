package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("check_change", 150*time.Millisecond)
	pr.IncStageResult("check_change", ResultSuccess)
	pr.IncStageResult("fetch_render", ResultFailed)
	pr.ObserveCycleDuration(4 * time.Second)
	pr.IncCycleOutcome("rendered")
	pr.IncCycleOutcome("rendered")
	pr.SetSleepSeconds(900)
	pr.SetBootCount(7)
	pr.SetBatteryVolts(3.91, true)
	pr.SetBatteryVolts(0, false)
	pr.ObserveDownloadBytes(960000)

	body := scrape(t, reg)
	assert.Contains(t, body, `inkframe_cycle_outcomes_total{outcome="rendered"} 2`)
	assert.Contains(t, body, `inkframe_stage_results_total{result="failed",stage="fetch_render"} 1`)
	assert.Contains(t, body, "inkframe_sleep_seconds 900")
	assert.Contains(t, body, "inkframe_battery_volts 3.91", "unmeasured reading keeps last value")
	assert.Contains(t, body, "inkframe_battery_measured 0")
	assert.Contains(t, body, "inkframe_image_download_bytes_count 1")
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncCycleOutcome("x")
		pr.SetBootCount(1)
		pr.SetBatteryVolts(1, true)
	})
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncCycleOutcome("rendered")
	r.ObserveStageDuration("x", time.Second)
}

func TestTextfileWrite(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.SetBootCount(3)

	path := filepath.Join(t.TempDir(), "textfile", "inkframe.prom")
	tf := NewTextfile(path, reg)
	require.NoError(t, tf.Write())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "inkframe_boot_count 3")
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).SetSleepSeconds(60)

	assert.Contains(t, scrape(t, reg), "inkframe_sleep_seconds 60")
}

func scrape(t *testing.T, reg *prom.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
