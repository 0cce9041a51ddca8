package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMetricLine matches a sample by name, a label fragment and value. The
// exporter adds scope labels, so the fragment is matched anywhere in the set.
func assertMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	provider, err := NewProvider("gw")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestBusinessMetrics_RecordOperation(t *testing.T) {
	provider := newTestProvider(t)
	bm, err := NewBusinessMetrics(provider.MeterProvider(), "gw")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "backend", "balance", StatusSuccess)
	bm.RecordOperation(ctx, "backend", "balance", StatusSuccess)
	bm.RecordOperation(ctx, "backend", "transfer", StatusError)
	bm.RecordOperation(ctx, "session", "Authenticate", StatusSuccess)

	output := scrape(t, provider)
	assertMetricLine(t, output, "gw_operations_total",
		`domain="backend",operation="balance"[^}]*status="success"`, "2")
	assertMetricLine(t, output, "gw_operations_total",
		`domain="backend",operation="transfer"[^}]*status="error"`, "1")
	assertMetricLine(t, output, "gw_operations_total",
		`domain="session",operation="Authenticate"[^}]*status="success"`, "1")
}

func TestBusinessMetrics_RecordDuration(t *testing.T) {
	provider := newTestProvider(t)
	bm, err := NewBusinessMetrics(provider.MeterProvider(), "gw")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordDuration(ctx, "backend", "balance", 40*time.Millisecond, StatusSuccess)
	bm.RecordDuration(ctx, "backend", "balance", 3*time.Second, StatusSuccess)

	output := scrape(t, provider)
	assertMetricLine(t, output, "gw_operation_duration_seconds_count",
		`domain="backend",operation="balance"[^}]*status="success"`, "2")
	assertMetricLine(t, output, "gw_operation_duration_seconds_bucket",
		`domain="backend".*le="0.05"`, "1")
	assertMetricLine(t, output, "gw_operation_duration_seconds_bucket",
		`domain="backend".*le="5"`, "2")
}

func TestNoOpBusinessMetrics(t *testing.T) {
	bm := NewNoOpBusinessMetrics()
	assert.IsType(t, NoOpBusinessMetrics{}, bm)

	assert.NotPanics(t, func() {
		bm.RecordOperation(context.Background(), "transaction", "balance", StatusSuccess)
		bm.RecordDuration(context.Background(), "transaction", "balance", time.Second, StatusError)
	})
}
