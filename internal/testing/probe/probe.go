// Package probe defines the fixed battery of storage probes and the runner that turns
// a probe invocation into a StepOutcome.
package probe

import (
	"context"
	"errors"
	"time"

	"github.com/ethpandaops/storage-probe/internal/host"
	"github.com/sirupsen/logrus"
)

// ID is the operation tag of a probe.
type ID string

// Probe identifiers, in execution order.
const (
	ListTables          ID = "list_tables"
	CreateTable         ID = "create_table"
	DescribeTable       ID = "describe_table"
	InsertData          ID = "insert_data"
	QueryEnhanced       ID = "query_enhanced"
	Transactions        ID = "transactions"
	ExplainQuery        ID = "explain_query"
	GetStats            ID = "get_stats"
	TransactionRollback ID = "transaction_rollback"
	KVStore             ID = "kv_store"
)

// Details is the flat diagnostic map attached to an outcome.
type Details map[string]string

// RunFunc performs one probe against the capability boundary. A non-nil error is
// expected to be a *Failure; details may be partially filled on failure.
type RunFunc func(ctx context.Context, c host.Capability) (Details, error)

// Probe is one entry of the catalog.
type Probe struct {
	ID        ID
	Name      string
	Weight    int
	DependsOn []ID
	Run       RunFunc
}

// StepOutcome is the result of exactly one probe invocation.
type StepOutcome struct {
	Name         string      `json:"stepName" yaml:"stepName"`
	Success      bool        `json:"success" yaml:"success"`
	ElapsedMs    float64     `json:"executionTimeMs" yaml:"executionTimeMs"`
	ErrorMessage *string     `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
	Details      Details     `json:"details,omitempty" yaml:"details,omitempty"`
	FailureKind  FailureKind `json:"failureKind,omitempty" yaml:"failureKind,omitempty"`
}

// Runner invokes probes and times them.
type Runner struct {
	log logrus.FieldLogger
	now func() time.Time
}

// NewRunner creates a probe runner. A nil clock uses time.Now.
func NewRunner(log logrus.FieldLogger, now func() time.Time) *Runner {
	if now == nil {
		now = time.Now
	}

	return &Runner{
		log: log.WithField("component", "probe_runner"),
		now: now,
	}
}

// Execute runs p against c and always returns an outcome. Elapsed time covers the
// whole probe on every path. Panics are not recovered.
func (r *Runner) Execute(ctx context.Context, p Probe, c host.Capability) StepOutcome {
	start := r.now()
	details, err := p.Run(ctx, c)
	elapsed := r.now().Sub(start)

	outcome := StepOutcome{
		Name:      p.Name,
		Success:   err == nil,
		ElapsedMs: float64(elapsed.Nanoseconds()) / float64(time.Millisecond),
	}

	if len(details) > 0 {
		outcome.Details = make(Details, len(details))
		for k, v := range details {
			outcome.Details[k] = v
		}
	}

	log := r.log.WithFields(logrus.Fields{
		"probe":      p.ID,
		"elapsed_ms": outcome.ElapsedMs,
		"success":    outcome.Success,
	})

	if err != nil {
		msg := err.Error()
		outcome.ErrorMessage = &msg
		outcome.FailureKind = KindOf(err)

		log.WithError(err).WithField("failure_kind", outcome.FailureKind).Warn("probe failed")

		return outcome
	}

	log.Debug("probe completed")

	return outcome
}

// KindOf classifies err. Errors that are not a *Failure count as transport failures.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}

	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}

	return FailureTransport
}
