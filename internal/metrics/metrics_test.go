package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_CountersStartAtZero(t *testing.T) {
	reg, m := NewRegistry()
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.IterationsTotal))
}

func TestMetrics_IncrementsAreObservable(t *testing.T) {
	_, m := NewRegistry()
	m.IterationsTotal.Inc()
	m.IterationsTotal.Inc()
	m.ReplansTotal.Inc()
	m.ToolErrorsTotal.WithLabelValues("run_tests", "VALIDATE").Inc()
	m.RunOutcomesTotal.WithLabelValues("SUCCESS").Inc()
	m.RunDurationSecs.Observe(12.5)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.IterationsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReplansTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolErrorsTotal.WithLabelValues("run_tests", "VALIDATE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunOutcomesTotal.WithLabelValues("SUCCESS")))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg, m := NewRegistry()
	assert.Panics(t, func() {
		reg.MustRegister(m.IterationsTotal)
	})
}
