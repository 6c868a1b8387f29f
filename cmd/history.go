package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ethpandaops/storage-probe/internal/config"
	"github.com/ethpandaops/storage-probe/internal/history"
	"github.com/ethpandaops/storage-probe/internal/testing"
	"github.com/ethpandaops/storage-probe/internal/testing/format"
	"github.com/ethpandaops/storage-probe/internal/testing/table"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// ErrHistoryDisabled is returned when no history location is configured.
var ErrHistoryDisabled = errors.New("history is disabled: set a data dir or STORAGE_PROBE_HISTORY_PATH")

var (
	historyLimit int
	historyShow  int64
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded probe runs",
	Long: `List the most recent recorded runs, newest first, or print a single stored report.

Example:
  storage-probe history --limit 5
  storage-probe history --show 12`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to list")
	historyCmd.Flags().Int64Var(&historyShow, "show", 0, "Print the stored report with this index")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	log := newLogger(false)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.HistoryEnabled() {
		return ErrHistoryDisabled
	}

	store, err := history.Open(log, cfg.HistoryPath, cfg.HistoryRetention)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	if historyShow > 0 {
		return showHistoryEntry(cmd, store, uint64(historyShow), cfg.ReportFormat)
	}

	records, err := store.Last(historyLimit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}

	out := cmd.OutOrStdout()

	if len(records) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	colors := table.NewColorHelper()
	rows := make([][]string, 0, len(records))

	for _, rec := range records {
		headline, err := rec.Headline()
		if err != nil {
			log.WithError(err).WithField("index", rec.Index).Warn("skipping unreadable history entry")
			continue
		}

		rows = append(rows, []string{
			strconv.FormatUint(rec.Index, 10),
			rec.RecordedAt.Local().Format("2006-01-02 15:04:05"),
			headline.Name,
			colors.FormatStatus(headline.Success),
			strconv.Itoa(headline.Failed),
			format.Ms(headline.TotalElapsedMs),
			format.Bytes(int64(len(rec.Report))),
		})
	}

	table.NewRenderer(log).RenderToWriter(out,
		[]string{"#", "Recorded", "Name", "Verdict", "Failed", "Total", "Size"},
		rows,
		table.WithColumnAlignment(
			tablewriter.ALIGN_RIGHT,
			tablewriter.ALIGN_LEFT,
			tablewriter.ALIGN_LEFT,
			tablewriter.ALIGN_LEFT,
			tablewriter.ALIGN_RIGHT,
			tablewriter.ALIGN_RIGHT,
			tablewriter.ALIGN_RIGHT,
		),
	)

	return nil
}

func showHistoryEntry(cmd *cobra.Command, store *history.Store, index uint64, reportFormat string) error {
	rec, err := store.Get(index)
	if err != nil {
		return fmt.Errorf("reading run %d: %w", index, err)
	}

	report, err := testing.DecodeReport(rec.Report)
	if err != nil {
		return fmt.Errorf("decoding run %d: %w", index, err)
	}

	data, err := report.Encode(reportFormat)
	if err != nil {
		return fmt.Errorf("encoding run %d: %w", index, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	return nil
}
