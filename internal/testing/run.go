package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethpandaops/storage-probe/internal/host"
	"github.com/sirupsen/logrus"
)

// ErrNoCapability is returned when no host capability is supplied.
var ErrNoCapability = errors.New("no host capability")

type runOptions struct {
	log       logrus.FieldLogger
	observers []Observer
	suiteName string
	clock     func() time.Time
	format    string
	onReport  func(*Report)
}

// Option configures Run.
type Option func(*runOptions)

// WithLogger sets the logger. Run logs nothing by default.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *runOptions) { o.log = log }
}

// WithObservers registers step observers.
func WithObservers(observers ...Observer) Option {
	return func(o *runOptions) { o.observers = append(o.observers, observers...) }
}

// WithSuiteName overrides the report name.
func WithSuiteName(name string) Option {
	return func(o *runOptions) { o.suiteName = name }
}

// WithClock replaces the probe timing clock.
func WithClock(now func() time.Time) Option {
	return func(o *runOptions) { o.clock = now }
}

// WithFormat selects the report encoding (json or yaml).
func WithFormat(format string) Option {
	return func(o *runOptions) { o.format = format }
}

// WithReportHook receives the assembled report before it is encoded.
func WithReportHook(fn func(*Report)) Option {
	return func(o *runOptions) { o.onReport = fn }
}

// Run executes the probe suite against c and returns the serialized report. The
// input is opaque and only logged. A failing probe is reported inside the payload;
// the returned error is limited to setup and encoding problems.
func Run(ctx context.Context, c host.Capability, input []byte, opts ...Option) ([]byte, error) {
	options := &runOptions{format: FormatJSON}
	for _, opt := range opts {
		opt(options)
	}

	if options.log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		options.log = quiet
	}

	options.log.WithField("input_bytes", len(input)).Debugf("run input: %q", input)

	orchestrator, err := NewOrchestrator(&OrchestratorConfig{
		Logger:     options.log,
		Capability: c,
		Observers:  options.observers,
		SuiteName:  options.suiteName,
		Clock:      options.clock,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	report := orchestrator.Run(ctx)

	if options.onReport != nil {
		options.onReport(report)
	}

	data, err := report.Encode(options.format)
	if err != nil {
		return nil, fmt.Errorf("serializing report: %w", err)
	}

	return data, nil
}
