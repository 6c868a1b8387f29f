package cmd

import (
	"github.com/sirupsen/logrus"
)

// newLogger returns the shared logger, raised to DebugLevel when verbose is set.
// Without verbose the LOG_LEVEL setting applies.
func newLogger(verbose bool) *logrus.Logger {
	if verbose {
		Logger.SetLevel(logrus.DebugLevel)
	}

	return Logger
}
