// Package metrics provides probe execution metrics collection and aggregation.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/ethpandaops/storage-probe/internal/testing/probe"
	"github.com/sirupsen/logrus"
)

const (
	// Latencies are recorded in microseconds.
	hdrScaleFactor = 1e3
	hdrMaxValue    = 3600000000
	hdrSigFigs     = 3
)

// Collector interface for metrics collection. It doubles as a run observer.
type Collector interface {
	Start(ctx context.Context) error
	Stop() error
	OnStepStart(index, total int, name string)
	OnStepDone(index int, outcome probe.StepOutcome)
	RecordStep(metric *StepMetric)
	GetStepMetrics() []StepMetric
	GetSummary() SummaryMetric
}

// collector implements Collector interface
type collector struct {
	log         logrus.FieldLogger
	mu          sync.RWMutex
	stepMetrics []StepMetric
	latency     *hdrhistogram.Histogram
	startTime   time.Time
	now         func() time.Time
}

// NewCollector creates a new metrics collector
// Returns Collector interface, not *collector struct (per ethPandaOps standards)
func NewCollector(log logrus.FieldLogger) Collector {
	return &collector{
		log:         log.WithField("component", "metrics_collector"),
		stepMetrics: make([]StepMetric, 0, 10),
		latency:     hdrhistogram.New(1, hdrMaxValue, hdrSigFigs),
		now:         time.Now,
	}
}

func (c *collector) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = c.now()

	c.log.Debug("metrics collector started")

	return nil
}

func (c *collector) Stop() error {
	c.log.Debug("metrics collector stopped")

	return nil
}

func (c *collector) OnStepStart(index, total int, name string) {
	c.log.WithFields(logrus.Fields{
		"index": index,
		"total": total,
		"probe": name,
	}).Debug("probe starting")
}

func (c *collector) OnStepDone(index int, outcome probe.StepOutcome) {
	metric := &StepMetric{
		Index:       index,
		Name:        outcome.Name,
		Passed:      outcome.Success,
		ElapsedMs:   outcome.ElapsedMs,
		FailureKind: string(outcome.FailureKind),
		Timestamp:   c.now(),
	}

	if outcome.ErrorMessage != nil {
		metric.ErrorMessage = *outcome.ErrorMessage
	}

	c.RecordStep(metric)
}

func (c *collector) RecordStep(metric *StepMetric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stepMetrics = append(c.stepMetrics, *metric)

	if err := c.latency.RecordValue(int64(metric.ElapsedMs * hdrScaleFactor)); err != nil {
		c.log.WithError(err).WithField("probe", metric.Name).Warn("latency outside histogram range")
	}
}

func (c *collector) GetStepMetrics() []StepMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()
	// Return copy to avoid race conditions
	result := make([]StepMetric, len(c.stepMetrics))
	copy(result, c.stepMetrics)
	return result
}

func (c *collector) GetSummary() SummaryMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := SummaryMetric{
		TotalSteps:     len(c.stepMetrics),
		FailuresByKind: make(map[string]int),
	}

	if !c.startTime.IsZero() {
		summary.TotalDuration = c.now().Sub(c.startTime)
	}

	for _, sm := range c.stepMetrics {
		summary.TotalElapsedMs += sm.ElapsedMs

		if sm.Passed {
			summary.PassedSteps++
		} else {
			summary.FailedSteps++
			summary.FailuresByKind[sm.FailureKind]++
		}
	}

	if summary.TotalSteps > 0 {
		summary.PassRate = float64(summary.PassedSteps) / float64(summary.TotalSteps) * 100.0
		summary.P50Ms = float64(c.latency.ValueAtQuantile(50)) / hdrScaleFactor
		summary.P90Ms = float64(c.latency.ValueAtQuantile(90)) / hdrScaleFactor
		summary.P99Ms = float64(c.latency.ValueAtQuantile(99)) / hdrScaleFactor
		summary.MaxMs = float64(c.latency.Max()) / hdrScaleFactor
	}

	return summary
}

// Compile-time interface compliance check
var _ Collector = (*collector)(nil)
