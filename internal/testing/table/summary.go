package table

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethpandaops/storage-probe/internal/testing"
	"github.com/ethpandaops/storage-probe/internal/testing/format"
	"github.com/ethpandaops/storage-probe/internal/testing/metrics"
	"github.com/sirupsen/logrus"
)

// SummaryFormatter formats the performance summary and collector statistics as a table.
type SummaryFormatter struct {
	log      logrus.FieldLogger
	renderer Renderer
	colors   *ColorHelper
}

// NewSummaryFormatter creates a new summary table formatter.
func NewSummaryFormatter(log logrus.FieldLogger, renderer Renderer) *SummaryFormatter {
	return &SummaryFormatter{
		log:      log.WithField("component", "table.summary_formatter"),
		renderer: renderer,
		colors:   NewColorHelper(),
	}
}

// Format converts the run summary into a formatted table string.
func (f *SummaryFormatter) Format(perf testing.PerformanceSummary, stats metrics.SummaryMetric) string {
	passedValue := fmt.Sprintf("%d (%s)", stats.PassedSteps, f.colors.FormatPercentage(stats.PassRate))
	if stats.PassedSteps == stats.TotalSteps {
		passedValue = f.colors.Success(fmt.Sprintf("%d (%.1f%%)", stats.PassedSteps, stats.PassRate))
	}

	failedValue := fmt.Sprintf("%d", stats.FailedSteps)
	if stats.FailedSteps > 0 {
		failedValue = f.colors.Failure(fmt.Sprintf("%d (%s)", stats.FailedSteps, formatKinds(stats.FailuresByKind)))
	} else {
		failedValue = f.colors.Success(failedValue)
	}

	var (
		headers = []string{"Metric", "Value"}
		rows    = [][]string{
			{"Total Steps", f.colors.Bold(fmt.Sprintf("%d", stats.TotalSteps))},
			{"Passed", passedValue},
			{"Failed", failedValue},
			{"Total Queries", fmt.Sprintf("%d", perf.TotalQueries)},
			{"Total Execution Time", format.Ms(perf.TotalElapsedMs)},
			{"Average Query Time", format.Ms(perf.AverageQueryMs)},
			{"Fastest Operation", optional(perf.FastestOperation)},
			{"Slowest Operation", optional(perf.SlowestOperation)},
			{"Step Latency p50/p90/p99", fmt.Sprintf("%.3f / %.3f / %.3f ms", stats.P50Ms, stats.P90Ms, stats.P99Ms)},
			{"Step Latency max", format.Ms(stats.MaxMs)},
			{"Wall Clock", format.Duration(stats.TotalDuration)},
		}
	)

	return "\n" + f.colors.Header("▸ Performance Summary") + "\n\n" + f.renderer.RenderToString(headers, rows)
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}

	return *s
}

func formatKinds(byKind map[string]int) string {
	kinds := make([]string, 0, len(byKind))
	for kind, n := range byKind {
		kinds = append(kinds, fmt.Sprintf("%s: %d", kind, n))
	}

	sort.Strings(kinds)

	return strings.Join(kinds, ", ")
}
