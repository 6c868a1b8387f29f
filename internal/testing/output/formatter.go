// Package output renders probe runs for humans.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/ethpandaops/storage-probe/internal/testing"
	"github.com/ethpandaops/storage-probe/internal/testing/format"
	"github.com/ethpandaops/storage-probe/internal/testing/metrics"
	"github.com/ethpandaops/storage-probe/internal/testing/table"
	"github.com/fatih/color"
)

// Formatter provides clean, human-friendly output
type Formatter interface {
	PrintPhase(phase string)
	PrintProgress(message string, duration time.Duration)
	PrintSuccess(message string)
	PrintError(message string, err error)
	PrintResults(report *testing.Report)
	PrintSummary(report *testing.Report)
	PrintVerdict(report *testing.Report)
}

type formatter struct {
	writer  io.Writer
	verbose bool

	metrics          metrics.Collector
	resultsFormatter *table.ResultsFormatter
	summaryFormatter *table.SummaryFormatter

	green *color.Color
	red   *color.Color
	blue  *color.Color
	gray  *color.Color
}

// NewFormatter creates a new output formatter
func NewFormatter(
	writer io.Writer,
	verbose bool,
	metricsCollector metrics.Collector,
	resultsFormatter *table.ResultsFormatter,
	summaryFormatter *table.SummaryFormatter,
) Formatter {
	return &formatter{
		writer:           writer,
		verbose:          verbose,
		metrics:          metricsCollector,
		resultsFormatter: resultsFormatter,
		summaryFormatter: summaryFormatter,
		green:            color.New(color.FgGreen),
		red:              color.New(color.FgRed),
		blue:             color.New(color.FgBlue),
		gray:             color.New(color.FgHiBlack),
	}
}

// PrintPhase prints phase separator
func (f *formatter) PrintPhase(phase string) {
	f.blue.Fprintf(f.writer, "\n▸ %s\n", phase)
}

// PrintProgress prints a message with optional timing. Only shown in verbose mode.
func (f *formatter) PrintProgress(message string, duration time.Duration) {
	if !f.verbose {
		return
	}

	if duration > 0 {
		f.gray.Fprintf(f.writer, "%s (%s)\n", message, format.Duration(duration))
	} else {
		fmt.Fprintf(f.writer, "%s\n", message)
	}
}

// PrintSuccess prints green message
func (f *formatter) PrintSuccess(message string) {
	f.green.Fprintf(f.writer, "%s\n", message)
}

// PrintError prints red message + error details
func (f *formatter) PrintError(message string, err error) {
	f.red.Fprintf(f.writer, "%s", message)
	if err != nil {
		f.red.Fprintf(f.writer, ": %v", err)
	}
	fmt.Fprintf(f.writer, "\n")
}

// PrintResults prints the per-probe table
func (f *formatter) PrintResults(report *testing.Report) {
	fmt.Fprintln(f.writer, f.resultsFormatter.Format(report.Outcomes))
}

// PrintSummary prints the performance summary table
func (f *formatter) PrintSummary(report *testing.Report) {
	fmt.Fprintln(f.writer, f.summaryFormatter.Format(report.Summary, f.metrics.GetSummary()))
}

// PrintVerdict prints the overall result line
func (f *formatter) PrintVerdict(report *testing.Report) {
	if report.Success {
		f.PrintSuccess(fmt.Sprintf("✓ %s passed", report.Name))
		return
	}

	msg := testing.FailureMessage
	if report.ErrorMessage != nil {
		msg = *report.ErrorMessage
	}

	f.PrintError(fmt.Sprintf("✗ %s: %s", report.Name, msg), nil)
}
