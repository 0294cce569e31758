package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger with timestamps formatted for
// terminal reading.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// newProgress logs the start of a step at debug level and returns a
// function that logs its completion with the elapsed time.
//
//	done := newProgress(logger, "connect store")
//	...
//	done()
func newProgress(logger *log.Logger, msg string) func() {
	logger.Debug(msg)
	start := time.Now()
	return func() {
		logger.Debug(fmt.Sprintf("%s (%.3fs)", msg, time.Since(start).Seconds()))
	}
}
