package table

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethpandaops/storage-probe/internal/testing/probe"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
)

const maxInlineErrorLen = 50

// ResultsFormatter formats probe outcomes as a table.
type ResultsFormatter struct {
	log      logrus.FieldLogger
	renderer Renderer
	colors   *ColorHelper
}

// NewResultsFormatter creates a new results table formatter.
func NewResultsFormatter(log logrus.FieldLogger, renderer Renderer) *ResultsFormatter {
	return &ResultsFormatter{
		log:      log.WithField("component", "table.results_formatter"),
		renderer: renderer,
		colors:   NewColorHelper(),
	}
}

// Format renders outcomes in execution order, followed by a failure section when
// any probe failed.
func (f *ResultsFormatter) Format(outcomes []probe.StepOutcome) string {
	if len(outcomes) == 0 {
		return "No probes executed"
	}

	var (
		headers = []string{"#", "Step", "Status", "Time", "Details"}
		rows    = make([][]string, 0, len(outcomes))
		failed  = make([]probe.StepOutcome, 0)
	)

	for i, outcome := range outcomes {
		var details string

		if outcome.Success {
			details = f.colors.Muted(summarizeDetails(outcome.Details))
		} else {
			failed = append(failed, outcome)

			if outcome.ErrorMessage != nil {
				// Truncate long error messages
				errMsg := *outcome.ErrorMessage
				if len(errMsg) > maxInlineErrorLen {
					errMsg = errMsg[:maxInlineErrorLen-3] + "..."
				}

				details = f.colors.Failure(errMsg)
			}
		}

		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			outcome.Name,
			f.colors.FormatStatus(outcome.Success),
			f.colors.FormatMs(outcome.ElapsedMs),
			details,
		})
	}

	output := "\n" + f.colors.Header("▸ Probe Results") + "\n\n" + f.renderer.RenderToString(
		headers,
		rows,
		WithColumnAlignment(
			tablewriter.ALIGN_RIGHT,
			tablewriter.ALIGN_LEFT,
			tablewriter.ALIGN_LEFT,
			tablewriter.ALIGN_RIGHT,
			tablewriter.ALIGN_LEFT,
		),
	)

	if len(failed) > 0 {
		output += f.formatFailureDetails(failed)
	}

	return output
}

// formatFailureDetails lists every failed probe with its full message and details.
func (f *ResultsFormatter) formatFailureDetails(failed []probe.StepOutcome) string {
	var builder strings.Builder

	builder.WriteString("\n\n" + f.colors.Header("▸ Failed Probe Details") + "\n\n")

	for i, outcome := range failed {
		if i > 0 {
			builder.WriteString("\n")
		}

		builder.WriteString(fmt.Sprintf("%s (%s)\n", f.colors.Bold(outcome.Name), f.colors.FormatMs(outcome.ElapsedMs)))

		if outcome.FailureKind != "" {
			builder.WriteString(fmt.Sprintf("  %s: %s\n", f.colors.Info("Kind"), outcome.FailureKind))
		}

		if outcome.ErrorMessage != nil {
			builder.WriteString(fmt.Sprintf("  %s: %s\n", f.colors.Failure("Error"), *outcome.ErrorMessage))
		} else {
			builder.WriteString(fmt.Sprintf("  %s: probe failed (no details available)\n", f.colors.Failure("Error")))
		}

		for _, key := range sortedKeys(outcome.Details) {
			builder.WriteString(fmt.Sprintf("    %s: %s\n", f.colors.Warning(key), outcome.Details[key]))
		}
	}

	return builder.String()
}

// summarizeDetails renders details as sorted key=value pairs, skipping bulky values.
func summarizeDetails(details probe.Details) string {
	parts := make([]string, 0, len(details))

	for _, key := range sortedKeys(details) {
		value := details[key]
		if strings.Contains(value, "\n") || len(value) > maxInlineErrorLen {
			continue
		}

		parts = append(parts, key+"="+value)
	}

	return strings.Join(parts, " ")
}

func sortedKeys(details probe.Details) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
