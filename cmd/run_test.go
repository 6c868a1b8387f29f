package cmd

import (
	"bytes"
	"io"
	"testing"

	"github.com/ethpandaops/storage-probe/internal/config"
	probetesting "github.com/ethpandaops/storage-probe/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()

	Logger.SetOutput(io.Discard)

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return buf.Bytes(), err
}

func TestRunAndHistory(t *testing.T) {
	t.Setenv(config.EnvDataDir, t.TempDir())
	t.Setenv(config.EnvReportFormat, "json")

	out, err := execute(t, "run", "--report", "--no-progress")
	require.NoError(t, err)

	report, err := probetesting.DecodeReport(out)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, probetesting.DefaultSuiteName, report.Name)
	assert.Len(t, report.Outcomes, 10)
	assert.Nil(t, report.ErrorMessage)

	out, err = execute(t, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, string(out), probetesting.DefaultSuiteName)
	assert.Contains(t, string(out), "PASS")

	out, err = execute(t, "history", "--show", "1")
	require.NoError(t, err)

	stored, err := probetesting.DecodeReport(out)
	require.NoError(t, err)
	assert.Equal(t, report.Name, stored.Name)
	assert.Equal(t, report.Summary.TotalQueries, stored.Summary.TotalQueries)
}

func TestRun_InvalidFormat(t *testing.T) {
	t.Setenv(config.EnvReportFormat, "xml")

	_, err := execute(t, "run", "--no-progress")
	require.ErrorIs(t, err, config.ErrInvalidReportFormat)
}

func TestHistory_Disabled(t *testing.T) {
	t.Setenv(config.EnvDataDir, "")
	t.Setenv(config.EnvHistoryPath, "")
	t.Setenv(config.EnvReportFormat, "json")

	_, err := execute(t, "history")
	require.ErrorIs(t, err, ErrHistoryDisabled)
}
