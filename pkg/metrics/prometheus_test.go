package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordRun(3)
	r.RecordRun(3)
	r.RecordError("data_unavailable")
	r.RecordCurrentRegime("AAPL", 2, 0.87)
	r.RecordStage("fit", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("data_unavailable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.currentState.WithLabelValues("AAPL")))
	assert.Equal(t, 0.87, testutil.ToFloat64(r.currentConfid.WithLabelValues("AAPL")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stageLatency))
}

func TestRecorder_BoundsSymbolLabels(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordRun(2)
	r.RecordRun(4)
	assert.Equal(t, 2, testutil.CollectAndCount(r.runsTotal))

	for i := 0; i < MaxRegimeSymbols+10; i++ {
		r.RecordCurrentRegime(fmt.Sprintf("SYM%d", i), 1, 0.5)
	}
	assert.Equal(t, MaxRegimeSymbols, testutil.CollectAndCount(r.currentState))
	assert.Equal(t, MaxRegimeSymbols, testutil.CollectAndCount(r.currentConfid))

	// already tracked symbols keep updating at the cap
	r.RecordCurrentRegime("SYM0", 2, 0.9)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.currentState.WithLabelValues("SYM0")))
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
