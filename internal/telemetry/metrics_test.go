package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
	monitortest "github.com/rileyhilliard/hostwatch/internal/monitor/testing"
)

func TestMetrics_RecordsObserverEvents(t *testing.T) {
	m := NewMetrics()

	m.CycleCompleted(monitor.CycleHistorical, 2, 150*time.Millisecond)
	m.CycleCompleted(monitor.CycleIncremental, 0, 20*time.Millisecond)
	m.CycleCompleted(monitor.CycleIncremental, 0, 20*time.Millisecond)
	m.KindFailed(monitor.KindARC, monitor.CycleHistorical)
	m.PointsApplied(monitor.KindNetwork, monitor.CycleHistorical, 12)
	m.PointsApplied(monitor.KindNetwork, monitor.CycleHistorical, 0)
	m.StaleDropped(monitor.KindCPU)
	m.TriggerDropped()
	m.TriggerDropped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("historical")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles.WithLabelValues("incremental")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.kindFailures.WithLabelValues("arc", "historical")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.pointsApplied.WithLabelValues("network", "historical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleDropped.WithLabelValues("cpu")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.triggerDropped))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastFailed))
	assert.Equal(t, 2, testutil.CollectAndCount(m.cycleDuration))
}

func TestMetrics_WiredIntoEngine(t *testing.T) {
	m := NewMetrics()
	e, err := monitor.NewEngine(monitor.Options{Observer: m, DisableRefresh: true})
	require.NoError(t, err)
	defer e.Close()

	f := monitortest.NewFakeFetcher().
		Queue(monitor.KindCPU, monitortest.CPUSample(time.Now(), 10, 1, 1, 1))
	require.NoError(t, e.SelectHost("hv1", f))
	e.Wait()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("historical")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.pointsApplied.WithLabelValues("cpu", "historical")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.TriggerDropped()

	srv := httptest.NewServer(Handler(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hostwatch_triggers_dropped_total 1")

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestStart_ServesAndShutsDown(t *testing.T) {
	m := NewMetrics()
	s, err := Start("127.0.0.1:0", m, nil)
	require.NoError(t, err)

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), "hostwatch_"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

func TestStart_BadAddress(t *testing.T) {
	_, err := Start("not-an-address", NewMetrics(), nil)
	assert.Error(t, err)
}
