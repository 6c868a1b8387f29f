package table

import (
	"fmt"

	"github.com/ethpandaops/storage-probe/internal/testing/format"
	"github.com/fatih/color"
)

// Step timing thresholds for coloring, in milliseconds.
const (
	slowStepMs     = 100.0
	verySlowStepMs = 1000.0
)

// ColorHelper colors probe output. Colors are enabled only when writing to a terminal.
type ColorHelper struct {
	enabled bool
}

// NewColorHelper creates a new color helper
func NewColorHelper() *ColorHelper {
	return &ColorHelper{
		enabled: !color.NoColor,
	}
}

func (c *ColorHelper) paint(attrs []color.Attribute, text string) string {
	if !c.enabled {
		return text
	}

	return color.New(attrs...).Sprint(text)
}

// Success returns green text.
func (c *ColorHelper) Success(text string) string {
	return c.paint([]color.Attribute{color.FgGreen}, text)
}

// Failure returns red text.
func (c *ColorHelper) Failure(text string) string {
	return c.paint([]color.Attribute{color.FgRed}, text)
}

// Warning returns yellow text.
func (c *ColorHelper) Warning(text string) string {
	return c.paint([]color.Attribute{color.FgYellow}, text)
}

// Info returns cyan text.
func (c *ColorHelper) Info(text string) string {
	return c.paint([]color.Attribute{color.FgCyan}, text)
}

// Muted returns gray text.
func (c *ColorHelper) Muted(text string) string {
	return c.paint([]color.Attribute{color.FgHiBlack}, text)
}

// Bold returns bold text.
func (c *ColorHelper) Bold(text string) string {
	return c.paint([]color.Attribute{color.Bold}, text)
}

// Header returns bold cyan text for section headers.
func (c *ColorHelper) Header(text string) string {
	return c.paint([]color.Attribute{color.FgCyan, color.Bold}, text)
}

// FormatStatus returns appropriately colored status text.
func (c *ColorHelper) FormatStatus(passed bool) string {
	if passed {
		return c.Success("✓ PASS")
	}
	return c.Failure("✗ FAIL")
}

// FormatPassed returns "passed/total" colored by how many passed.
func (c *ColorHelper) FormatPassed(passed, total int) string {
	text := fmt.Sprintf("%d/%d", passed, total)
	if passed == total {
		return c.Success(text)
	}
	if passed == 0 {
		return c.Failure(text)
	}
	return c.Warning(text)
}

// FormatPercentage returns colored percentage based on value.
func (c *ColorHelper) FormatPercentage(value float64) string {
	text := fmt.Sprintf("%.1f%%", value)
	if value == 100.0 {
		return c.Success(text)
	}
	if value >= 90.0 {
		return c.Warning(text)
	}
	return c.Failure(text)
}

// FormatMs formats a millisecond duration, highlighting slow steps.
func (c *ColorHelper) FormatMs(ms float64) string {
	text := format.Ms(ms)
	switch {
	case ms >= verySlowStepMs:
		return c.Failure(text)
	case ms >= slowStepMs:
		return c.Warning(text)
	default:
		return text
	}
}
