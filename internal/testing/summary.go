package testing

import (
	"github.com/ethpandaops/storage-probe/internal/testing/probe"
)

// PerformanceSummary is the aggregate timing view of a run.
type PerformanceSummary struct {
	TotalQueries     int      `json:"totalQueries" yaml:"totalQueries"`
	TotalElapsedMs   float64  `json:"totalExecutionTimeMs" yaml:"totalExecutionTimeMs"`
	AverageQueryMs   float64  `json:"averageQueryTimeMs" yaml:"averageQueryTimeMs"`
	OperationTags    []string `json:"databaseOperations" yaml:"databaseOperations"`
	FastestOperation *string  `json:"fastestOperation,omitempty" yaml:"fastestOperation,omitempty"`
	SlowestOperation *string  `json:"slowestOperation,omitempty" yaml:"slowestOperation,omitempty"`
}

// Accumulator holds the running state of a run: outcomes in execution order,
// folded totals and the conjunction of all verdicts so far.
type Accumulator struct {
	Outcomes []probe.StepOutcome
	Summary  PerformanceSummary
	Success  bool
}

// NewAccumulator returns the identity of Fold.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		Outcomes: make([]probe.StepOutcome, 0, 10),
		Summary:  PerformanceSummary{OperationTags: make([]string, 0, 10)},
		Success:  true,
	}
}

// Fold adds one probe outcome. The query weight counts whether or not the probe
// succeeded.
func (a *Accumulator) Fold(p probe.Probe, outcome probe.StepOutcome) {
	a.Outcomes = append(a.Outcomes, outcome)
	a.Summary.TotalQueries += p.Weight
	a.Summary.TotalElapsedMs += outcome.ElapsedMs
	a.Summary.OperationTags = append(a.Summary.OperationTags, string(p.ID))
	a.Success = a.Success && outcome.Success
}

// Finalize fills the derived statistics once all outcomes are folded.
func (a *Accumulator) Finalize() PerformanceSummary {
	summary := a.Summary
	summary.AverageQueryMs = AverageQueryMs(summary.TotalElapsedMs, summary.TotalQueries)
	summary.FastestOperation, summary.SlowestOperation = FastestSlowest(a.Outcomes)

	return summary
}

// AverageQueryMs divides total time by query count, returning 0 for no queries.
func AverageQueryMs(totalMs float64, totalQueries int) float64 {
	if totalQueries <= 0 {
		return 0
	}

	return totalMs / float64(totalQueries)
}

// FastestSlowest scans outcomes once. Ties go to the earliest outcome; an empty
// list yields nil for both.
func FastestSlowest(outcomes []probe.StepOutcome) (fastest, slowest *string) {
	if len(outcomes) == 0 {
		return nil, nil
	}

	minIdx, maxIdx := 0, 0

	for i := 1; i < len(outcomes); i++ {
		if outcomes[i].ElapsedMs < outcomes[minIdx].ElapsedMs {
			minIdx = i
		}

		if outcomes[i].ElapsedMs > outcomes[maxIdx].ElapsedMs {
			maxIdx = i
		}
	}

	fastestName := outcomes[minIdx].Name
	slowestName := outcomes[maxIdx].Name

	return &fastestName, &slowestName
}
