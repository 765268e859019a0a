package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTurnIncrementsCounterAndHistogram(t *testing.T) {
	m := NewMetrics()
	m.RecordTurn("ok", 150*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.turnsTotal.WithLabelValues("ok")))
}

func TestRecordToolCallLabelsByToolAndOutcome(t *testing.T) {
	m := NewMetrics()
	m.RecordToolCall("bash", "error", 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.toolCalls.WithLabelValues("bash", "error")))
}

func TestRecordTokensSkipsZeroCounts(t *testing.T) {
	m := NewMetrics()
	m.RecordTokens("anthropic", 100, 0)

	assert.Equal(t, float64(100), testutil.ToFloat64(m.tokensTotal.WithLabelValues("anthropic", "prompt")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.tokensTotal.WithLabelValues("anthropic", "completion")))
}

func TestRecordMemoryOp(t *testing.T) {
	m := NewMetrics()
	m.RecordMemoryOp("store_event", "dropped")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.memoryOps.WithLabelValues("store_event", "dropped")))
}

func TestSetSessionActiveToggles(t *testing.T) {
	m := NewMetrics()
	m.SetSessionActive(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.activeSession))
	m.SetSessionActive(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.activeSession))
}

func TestNilMetricsMethodsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTurn("ok", time.Second)
		m.RecordToolCall("bash", "ok", time.Second)
		m.RecordTokens("anthropic", 1, 1)
		m.RecordMemoryOp("store_event", "ok")
		m.SetSessionActive(true)
		_ = m.Registry()
		_ = m.Handler()
	})
}
