package loadtest

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/parrot/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the global logger to write to both stdout and a
// log file. If logFile is empty, a timestamped filename is generated. The
// returned function closes the file.
func SetupLogging(logFile string) (func() error, error) {
	if logFile == "" {
		logFile = "loadtest_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file.Close, nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Parrot Load Test Tool
=====================

Submits synthetic recordings to a running parrot server concurrently and
verifies the assessments and audio links it returns.

Usage:
  go run ./cmd/parrot-loadtest [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -requests int
        Number of uploads to submit (default 100)
  -workers int
        Number of concurrent workers (default 4)
  -language string
        Language code sent with every upload (default "en")
  -timeout duration
        HTTP request timeout (default 3m0s)
  -output string
        Report file (default: loadtest_report_TIMESTAMP.json)
  -log string
        Log file for test output (default: loadtest_TIMESTAMP.log)
  -verbose
        Log every upload that was not assessed
  -help
        Show this help message

Examples:
  # Push 500 English uploads through 8 workers
  go run ./cmd/parrot-loadtest -requests 500 -workers 8

  # Exercise the Arabic pipeline against a remote server
  go run ./cmd/parrot-loadtest -language ar -url http://parrot.internal:5000
`)
}
