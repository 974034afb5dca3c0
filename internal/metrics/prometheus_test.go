package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistered(t *testing.T) (*Prometheus, *prometheus.Registry) {
	t.Helper()
	p := NewPrometheus("plansync")
	reg := prometheus.NewRegistry()
	require.NoError(t, p.Register(reg))
	return p, reg
}

func TestPrometheus_Register(t *testing.T) {
	p, reg := newRegistered(t)

	err := p.Register(reg)
	assert.Error(t, err, "registering twice must fail")
}

func TestPrometheus_SyncRuns(t *testing.T) {
	p, _ := newRegistered(t)

	p.RecordSyncRun("budgets", true, false, time.Second)
	p.RecordSyncRun("budgets", false, false, time.Second)
	p.RecordSyncRun("budgets", true, true, 0)

	assert.InDelta(t, 1, testutil.ToFloat64(p.syncRuns.WithLabelValues("budgets", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.syncRuns.WithLabelValues("budgets", "partial")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.syncRuns.WithLabelValues("budgets", "skipped")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(p.syncDuration))
}

func TestPrometheus_Items(t *testing.T) {
	p, _ := newRegistered(t)

	p.RecordSyncItem("rules", PhaseUpload, true)
	p.RecordSyncItem("rules", PhaseUpload, true)
	p.RecordSyncItem("rules", PhaseUpload, false)

	assert.InDelta(t, 2, testutil.ToFloat64(p.syncItems.WithLabelValues("rules", PhaseUpload, ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.syncItems.WithLabelValues("rules", PhaseUpload, ResultFailure)), 0)
}

func TestPrometheus_CursorAndCircuit(t *testing.T) {
	p, _ := newRegistered(t)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.RecordCursor("accounts", at)
	assert.InDelta(t, float64(at.Unix()), testutil.ToFloat64(p.cursor.WithLabelValues("accounts")), 0)

	p.RecordCircuitState("remote", CircuitOpen)
	p.RecordCircuitState("remote", CircuitHalfOpen)
	assert.InDelta(t, 2, testutil.ToFloat64(p.circuitState.WithLabelValues("remote")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.circuitOpens.WithLabelValues("remote")), 0)
}

func TestPrometheus_Materialized(t *testing.T) {
	p, _ := newRegistered(t)

	p.InstancesMaterialized(36)
	p.InstancesMaterialized(0)
	assert.InDelta(t, 36, testutil.ToFloat64(p.materialized), 0)
}

func TestPrometheus_WriteToTextfile(t *testing.T) {
	p, reg := newRegistered(t)
	p.InstancesMaterialized(3)

	path := filepath.Join(t.TempDir(), "plansync.prom")
	require.NoError(t, prometheus.WriteToTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "plansync_instances_materialized_total 3")
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}
