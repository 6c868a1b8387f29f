// Package testing runs the storage probe battery against a host capability and
// reduces the outcomes into a report.
package testing

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/storage-probe/internal/host"
	"github.com/ethpandaops/storage-probe/internal/testing/probe"
	"github.com/sirupsen/logrus"
)

// Observer is notified around every probe. Calls happen on the run goroutine,
// between probes, in execution order.
type Observer interface {
	OnStepStart(index, total int, name string)
	OnStepDone(index int, outcome probe.StepOutcome)
}

// OrchestratorConfig contains configuration for a probe run.
type OrchestratorConfig struct {
	Logger     logrus.FieldLogger
	Capability host.Capability
	// Probes defaults to probe.Catalog().
	Probes    []probe.Probe
	Observers []Observer
	SuiteName string
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Orchestrator runs probes strictly in sequence.
type Orchestrator struct {
	log        logrus.FieldLogger
	capability host.Capability
	probes     []probe.Probe
	observers  []Observer
	suiteName  string
	runner     *probe.Runner
}

// NewOrchestrator creates an orchestrator, rejecting a probe list whose
// dependencies are not satisfied by its order.
func NewOrchestrator(cfg *OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Capability == nil {
		return nil, fmt.Errorf("creating orchestrator: %w", ErrNoCapability)
	}

	probes := cfg.Probes
	if probes == nil {
		probes = probe.Catalog()
	}

	if err := probe.ValidateOrder(probes); err != nil {
		return nil, fmt.Errorf("validating probe order: %w", err)
	}

	return &Orchestrator{
		log:        cfg.Logger.WithField("component", "test_orchestrator"),
		capability: cfg.Capability,
		probes:     probes,
		observers:  cfg.Observers,
		suiteName:  cfg.SuiteName,
		runner:     probe.NewRunner(cfg.Logger, cfg.Clock),
	}, nil
}

// Run executes every probe once, in order, without stopping at failures, and
// returns the assembled report.
func (o *Orchestrator) Run(ctx context.Context) *Report {
	total := len(o.probes)

	o.log.WithField("probes", total).Info("running probe suite")

	acc := NewAccumulator()

	for i, p := range o.probes {
		for _, obs := range o.observers {
			obs.OnStepStart(i, total, p.Name)
		}

		outcome := o.runner.Execute(ctx, p, o.capability)
		acc.Fold(p, outcome)

		for _, obs := range o.observers {
			obs.OnStepDone(i, outcome)
		}
	}

	report := Assemble(o.suiteName, acc)

	o.log.WithFields(logrus.Fields{
		"success":          report.Success,
		"failed":           len(report.Failed()),
		"total_queries":    report.Summary.TotalQueries,
		"total_elapsed_ms": report.Summary.TotalElapsedMs,
	}).Info("probe suite finished")

	return report
}
