package testing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethpandaops/storage-probe/internal/testing/probe"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultSuiteName is the report name used when none is configured.
	DefaultSuiteName = "Comprehensive Storage Test Suite"

	// FailureMessage is the report error message when any probe failed.
	FailureMessage = "Some tests failed"
)

// Report encodings.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned for unsupported report encodings.
var ErrUnknownFormat = errors.New("unknown report format")

// Report is the final result of one run. It is not modified after Assemble.
type Report struct {
	Name         string              `json:"testName" yaml:"testName"`
	Success      bool                `json:"success" yaml:"success"`
	Outcomes     []probe.StepOutcome `json:"results" yaml:"results"`
	Summary      PerformanceSummary  `json:"performanceSummary" yaml:"performanceSummary"`
	ErrorMessage *string             `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
}

// Assemble builds the report from a fully folded accumulator.
func Assemble(name string, acc *Accumulator) *Report {
	if name == "" {
		name = DefaultSuiteName
	}

	outcomes := make([]probe.StepOutcome, len(acc.Outcomes))
	copy(outcomes, acc.Outcomes)

	report := &Report{
		Name:     name,
		Success:  acc.Success,
		Outcomes: outcomes,
		Summary:  acc.Finalize(),
	}

	if !report.Success {
		msg := FailureMessage
		report.ErrorMessage = &msg
	}

	return report
}

// Failed returns the outcomes that did not succeed, in execution order.
func (r *Report) Failed() []probe.StepOutcome {
	failed := make([]probe.StepOutcome, 0)
	for _, o := range r.Outcomes {
		if !o.Success {
			failed = append(failed, o)
		}
	}

	return failed
}

// Encode serializes the report as JSON or YAML.
func (r *Report) Encode(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encoding report as json: %w", err)
		}

		return data, nil
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encoding report as yaml: %w", err)
		}

		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// DecodeReport parses a JSON-serialized report.
func DecodeReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}

	return &r, nil
}
