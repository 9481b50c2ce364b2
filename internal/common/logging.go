package common

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix:          "[balisegate]",
	ReportTimestamp: true,
	TimeFormat:      time.StampMicro,
	Level:           log.InfoLevel,
})

// Logger returns the shared logger.
func Logger() *log.Logger {
	return logger
}

// SetOutput redirects log output, e.g. to a rotating file.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// SetDebug toggles debug-level output.
func SetDebug(on bool) {
	if on {
		logger.SetLevel(log.DebugLevel)
		return
	}
	logger.SetLevel(log.InfoLevel)
}

func Logf(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}
