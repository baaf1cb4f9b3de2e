package main

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger builds the process logger at level ("debug", "info", "warn" or
// "error"). Unknown levels fall back to info.
func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}
