package testing

import (
	"testing"

	"github.com/ethpandaops/storage-probe/internal/testing/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outcomes(elapsed ...float64) []probe.StepOutcome {
	names := []string{"a", "b", "c", "d", "e", "f"}

	out := make([]probe.StepOutcome, len(elapsed))
	for i, ms := range elapsed {
		out[i] = probe.StepOutcome{Name: names[i], Success: true, ElapsedMs: ms}
	}

	return out
}

func TestFastestSlowest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		outcomes    []probe.StepOutcome
		wantFastest string
		wantSlowest string
	}{
		{name: "ties go to lowest index", outcomes: outcomes(5, 2, 2, 9), wantFastest: "b", wantSlowest: "d"},
		{name: "single element", outcomes: outcomes(3), wantFastest: "a", wantSlowest: "a"},
		{name: "all equal", outcomes: outcomes(1, 1, 1), wantFastest: "a", wantSlowest: "a"},
		{name: "descending", outcomes: outcomes(9, 5, 1), wantFastest: "c", wantSlowest: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fastest, slowest := FastestSlowest(tt.outcomes)
			require.NotNil(t, fastest)
			require.NotNil(t, slowest)
			assert.Equal(t, tt.wantFastest, *fastest)
			assert.Equal(t, tt.wantSlowest, *slowest)
		})
	}

	t.Run("empty", func(t *testing.T) {
		fastest, slowest := FastestSlowest(nil)
		assert.Nil(t, fastest)
		assert.Nil(t, slowest)
	})
}

func TestAverageQueryMs(t *testing.T) {
	t.Parallel()

	assert.Zero(t, AverageQueryMs(12.5, 0))
	assert.InDelta(t, 2.5, AverageQueryMs(40, 16), 1e-12)
}

func TestAccumulator_Fold(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	assert.True(t, acc.Success)

	acc.Fold(probe.Probe{ID: "one", Weight: 1}, probe.StepOutcome{Name: "One", Success: true, ElapsedMs: 4})
	acc.Fold(probe.Probe{ID: "three", Weight: 3}, probe.StepOutcome{Name: "Three", Success: false, ElapsedMs: 8})
	acc.Fold(probe.Probe{ID: "two", Weight: 2}, probe.StepOutcome{Name: "Two", Success: true, ElapsedMs: 0})

	assert.False(t, acc.Success)
	assert.Len(t, acc.Outcomes, 3)
	assert.Equal(t, 6, acc.Summary.TotalQueries)
	assert.InDelta(t, 12.0, acc.Summary.TotalElapsedMs, 1e-12)
	assert.Equal(t, []string{"one", "three", "two"}, acc.Summary.OperationTags)

	summary := acc.Finalize()
	assert.InDelta(t, 2.0, summary.AverageQueryMs, 1e-12)
	assert.Equal(t, "Two", *summary.FastestOperation)
	assert.Equal(t, "Three", *summary.SlowestOperation)
}

func TestAccumulator_FinalizeEmpty(t *testing.T) {
	t.Parallel()

	summary := NewAccumulator().Finalize()
	assert.Zero(t, summary.TotalQueries)
	assert.Zero(t, summary.AverageQueryMs)
	assert.Nil(t, summary.FastestOperation)
	assert.Nil(t, summary.SlowestOperation)
	assert.NotNil(t, summary.OperationTags)
}
