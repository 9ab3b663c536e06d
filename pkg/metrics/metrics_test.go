package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersVisibleThroughPromhttp(t *testing.T) {
	RecordsIngested.Inc()
	RecordsDropped.WithLabelValues("bad_timestamp").Inc()
	EvalFailures.WithLabelValues("overvoltage").Inc()
	AlertsEmitted.WithLabelValues("overvoltage", "critical").Inc()

	// 计数器注册在默认Registry上，挂promhttp的进程就能抓到
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "stationalert_records_ingested_total")
	assert.Contains(t, body, `stationalert_records_dropped_total{reason="bad_timestamp"}`)
	assert.Contains(t, body, `stationalert_rule_eval_failures_total{rule="overvoltage"}`)
	assert.Contains(t, body, `stationalert_alerts_emitted_total{rule="overvoltage",severity="critical"}`)
}
