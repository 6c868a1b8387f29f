package output

import (
	"fmt"
	"io"

	"github.com/ethpandaops/storage-probe/internal/testing/probe"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// Progress draws a live bar while the probe battery runs. It implements the
// orchestrator observer callbacks.
type Progress struct {
	writer  io.Writer
	bar     *progressbar.ProgressBar
	passed  int
	failed  int
	current string
}

// NewProgress creates a progress observer writing to w (usually stderr).
func NewProgress(w io.Writer) *Progress {
	return &Progress{writer: w}
}

func (p *Progress) ensureBar(total int) {
	if p.bar != nil {
		return
	}

	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(p.describe()),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.writer, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *Progress) describe() string {
	desc := color.CyanString("Probing: ") +
		color.GreenString("[passed: %d", p.passed) +
		" | " +
		color.RedString("failed: %d]", p.failed)

	if p.current != "" {
		desc += " " + p.current
	}

	return desc
}

// OnStepStart shows the probe about to run.
func (p *Progress) OnStepStart(_, total int, name string) {
	p.ensureBar(total)
	p.current = name
	p.bar.Describe(p.describe())
}

// OnStepDone advances the bar and updates the counts.
func (p *Progress) OnStepDone(_ int, outcome probe.StepOutcome) {
	if outcome.Success {
		p.passed++
	} else {
		p.failed++
	}

	p.current = ""
	p.bar.Describe(p.describe())
	_ = p.bar.Add(1)
}

// Finish completes the bar if it was started.
func (p *Progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Counts returns the passed and failed totals seen so far.
func (p *Progress) Counts() (passed, failed int) {
	return p.passed, p.failed
}
