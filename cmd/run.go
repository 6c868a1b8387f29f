package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethpandaops/storage-probe/internal/config"
	"github.com/ethpandaops/storage-probe/internal/history"
	"github.com/ethpandaops/storage-probe/internal/host"
	"github.com/ethpandaops/storage-probe/internal/testing"
	"github.com/ethpandaops/storage-probe/internal/testing/metrics"
	"github.com/ethpandaops/storage-probe/internal/testing/output"
	"github.com/ethpandaops/storage-probe/internal/testing/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ErrSuiteFailed is returned when at least one probe failed.
var ErrSuiteFailed = errors.New("some tests failed")

var (
	runDataDir     string
	runSQLitePath  string
	runKVPath      string
	runFormat      string
	runSuiteName   string
	runOutput      string
	runInput       string
	runVerbose     bool
	runNoHistory   bool
	runNoProgress  bool
	runPrintReport bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the storage probe suite",
	Long: `Run the ten storage probes in order against the reference host and print the
results and performance summary.

The host is in-memory unless a data directory (or explicit database paths) is
configured. Every probe runs even when an earlier one fails; the command exits
non-zero when any probe failed.

Example:
  storage-probe run
  storage-probe run --data-dir ./data --format yaml --output report.yaml
  storage-probe run --report | jq .performanceSummary`,
	RunE: runProbeSuite,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "Base directory for host state (default in-memory)")
	runCmd.Flags().StringVar(&runSQLitePath, "sqlite-path", "", "SQLite database file (overrides data dir)")
	runCmd.Flags().StringVar(&runKVPath, "kv-path", "", "Key-value store directory (overrides data dir)")
	runCmd.Flags().StringVar(&runFormat, "format", "", "Report encoding: json or yaml")
	runCmd.Flags().StringVar(&runSuiteName, "name", "", "Report name")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Write the serialized report to this file")
	runCmd.Flags().StringVar(&runInput, "input", "", "Opaque input passed to the suite")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Verbose output")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Do not record this run in history")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "Disable the progress bar")
	runCmd.Flags().BoolVar(&runPrintReport, "report", false, "Print only the serialized report to stdout")
}

// loadRunConfig applies command flags on top of the environment configuration.
func loadRunConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	return config.Load(func(c *config.AppConfig) {
		flags := cmd.Flags()

		if flags.Changed("data-dir") {
			c.DataDir = runDataDir
		}
		if flags.Changed("sqlite-path") {
			c.SQLitePath = runSQLitePath
		}
		if flags.Changed("kv-path") {
			c.KVPath = runKVPath
		}
		if flags.Changed("format") {
			c.ReportFormat = runFormat
		}
		if flags.Changed("name") {
			c.SuiteName = runSuiteName
		}
	})
}

func runProbeSuite(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := newLogger(runVerbose)

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	local, err := host.Open(ctx, log, cfg.HostConfig())
	if err != nil {
		return fmt.Errorf("opening host: %w", err)
	}
	defer func() {
		if err := local.Close(); err != nil {
			log.WithError(err).Warn("failed to close host")
		}
	}()

	collector := metrics.NewCollector(log)
	if err := collector.Start(ctx); err != nil {
		return fmt.Errorf("starting metrics collector: %w", err)
	}
	defer collector.Stop() //nolint:errcheck // collector stop never fails

	observers := []testing.Observer{collector}

	var progress *output.Progress
	if !runNoProgress && !runPrintReport {
		progress = output.NewProgress(os.Stderr)
		observers = append(observers, progress)
	}

	var report *testing.Report

	data, err := testing.Run(ctx, local, []byte(runInput),
		testing.WithLogger(log),
		testing.WithObservers(observers...),
		testing.WithSuiteName(cfg.SuiteName),
		testing.WithFormat(cfg.ReportFormat),
		testing.WithReportHook(func(r *testing.Report) { report = r }),
	)

	if progress != nil {
		progress.Finish()
	}

	if err != nil {
		return fmt.Errorf("running probe suite: %w", err)
	}

	if cfg.HistoryEnabled() && !runNoHistory {
		recordHistory(log, cfg, report)
	}

	if runOutput != "" {
		if err := os.WriteFile(runOutput, data, 0o600); err != nil {
			return fmt.Errorf("writing report to %s: %w", runOutput, err)
		}
	}

	stdout := cmd.OutOrStdout()

	if runPrintReport {
		if _, err := stdout.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	} else {
		formatter := newFormatter(log, stdout, runVerbose, collector)
		formatter.PrintResults(report)
		formatter.PrintSummary(report)
		if runOutput != "" {
			formatter.PrintProgress(fmt.Sprintf("report written to %s", runOutput), 0)
		}
		formatter.PrintVerdict(report)
	}

	if !report.Success {
		return ErrSuiteFailed
	}

	return nil
}

func newFormatter(log logrus.FieldLogger, w io.Writer, verbose bool, collector metrics.Collector) output.Formatter {
	renderer := table.NewRenderer(log)

	return output.NewFormatter(
		w,
		verbose,
		collector,
		table.NewResultsFormatter(log, renderer),
		table.NewSummaryFormatter(log, renderer),
	)
}

// recordHistory stores the run as JSON whatever the display format. Failures are
// logged, not returned; history is best effort.
func recordHistory(log logrus.FieldLogger, cfg *config.AppConfig, report *testing.Report) {
	payload, err := report.Encode(testing.FormatJSON)
	if err != nil {
		log.WithError(err).Warn("failed to encode report for history")
		return
	}

	store, err := history.Open(log, cfg.HistoryPath, cfg.HistoryRetention)
	if err != nil {
		log.WithError(err).Warn("failed to open history")
		return
	}
	defer store.Close()

	index, err := store.Append(time.Now(), payload)
	if err != nil {
		log.WithError(err).Warn("failed to record run in history")
		return
	}

	log.WithField("index", index).Debug("run recorded in history")
}
