package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/parrot/internal/loadtest"
	"github.com/okian/parrot/pkg/logger"
)

// Default configuration constants.
const (
	defaultRequests    = 100
	defaultWorkers     = 4
	defaultTimeout     = 3 * time.Minute
	defaultTestTimeout = 30 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:5000", "Base URL of the service")
		requests   = flag.Int("requests", defaultRequests, "Number of uploads to submit")
		workers    = flag.Int("workers", defaultWorkers, "Number of concurrent workers")
		language   = flag.String("language", "en", "Language code sent with every upload")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Report file (default: loadtest_report_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: loadtest_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Log every upload that was not assessed")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	closeLog, err := loadtest.SetupLogging(*logFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	config := &loadtest.Config{
		BaseURL:    *baseURL,
		Requests:   *requests,
		Workers:    max(*workers, 1),
		Timeout:    *timeout,
		Language:   *language,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := loadtest.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "load test failed", logger.Error(err))
		cancel()
		stop()
		_ = closeLog()
		os.Exit(1)
	}
}
