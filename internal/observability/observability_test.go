package observability

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCount(t *testing.T) {
	m := NewMetrics("voxcal")
	m.ObserveIntent("create")
	m.ObserveIntent("create")
	m.ObserveStoreCall("list", "ok")
	m.ObserveStoreRetry("list")

	require.Equal(t, 2.0, testutil.ToFloat64(m.Intents.WithLabelValues("create")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StoreCalls.WithLabelValues("list", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StoreRetries.WithLabelValues("list")))

	// A second instance must not collide with the first.
	require.NotPanics(t, func() { NewMetrics("voxcal") })
}

func TestRouter(t *testing.T) {
	m := NewMetrics("voxcal")
	m.ObserveIntent("weather")
	srv := httptest.NewServer(Router(m, func() map[string]any {
		return map[string]any{"turns": 3}
	}))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, 3.0, body["turns"])

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(raw), `voxcal_intents_total{intent="weather"} 1`))
}
