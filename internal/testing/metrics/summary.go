package metrics

import "time"

// StepMetric captures one completed probe.
type StepMetric struct {
	Index        int
	Name         string
	Passed       bool
	ElapsedMs    float64
	FailureKind  string
	ErrorMessage string // empty if passed
	Timestamp    time.Time
}

// SummaryMetric provides aggregate statistics across all recorded steps.
type SummaryMetric struct {
	TotalDuration  time.Duration
	TotalSteps     int
	PassedSteps    int
	FailedSteps    int
	PassRate       float64 // percentage
	TotalElapsedMs float64
	P50Ms          float64
	P90Ms          float64
	P99Ms          float64
	MaxMs          float64
	FailuresByKind map[string]int
}
