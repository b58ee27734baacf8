package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/okian/parrot/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// ErrNoAssessments is returned when not a single upload was scored.
var ErrNoAssessments = errors.New("no uploads were assessed")

// Run executes the complete load test.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting parrot load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.String("language", config.Language),
		logger.Bool("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	if err := checkLanguage(ctx, config); err != nil {
		return stats, fmt.Errorf("language check failed: %w", err)
	}

	uploads, err := generateUploads(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("upload generation failed: %w", err)
	}

	results := submitUploads(ctx, config, uploads, stats)

	verifyErr := verifyResults(ctx, config, results, stats)

	if err := saveReport(ctx, config, results); err != nil {
		log.Warn(ctx, "failed to save report", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verifyErr)
	}
	if stats.UploadsSuccessful == 0 && len(uploads) > 0 {
		return stats, ErrNoAssessments
	}
	log.Info(ctx, "test completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	// The service answers with Prometheus metrics; any 200 is healthy.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// checkLanguage confirms the server supports config.Language.
func checkLanguage(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/languages")
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("languages request failed with status: %d", resp.StatusCode)
	}

	var payload struct {
		Languages []struct {
			Code string `json:"code"`
		} `json:"languages"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("malformed languages response: %w", err)
	}
	codes := make([]string, 0, len(payload.Languages))
	for _, l := range payload.Languages {
		codes = append(codes, l.Code)
	}
	if !slices.Contains(codes, config.Language) {
		return fmt.Errorf("language %q not supported; server offers %v", config.Language, codes)
	}
	return nil
}

// saveReport writes every Result to a JSON file.
func saveReport(ctx context.Context, config *Config, results []Result) error {
	filename := config.OutputFile
	if filename == "" {
		filename = "loadtest_report_" + time.Now().Format("20060102_150405") + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, data, reportPermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	logger.Get().Info(ctx, "report saved", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, uploadsPerSecond float64
	if stats.UploadsSubmitted > 0 {
		successRate = float64(stats.UploadsSuccessful) / float64(stats.UploadsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		uploadsPerSecond = float64(stats.UploadsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("uploadsGenerated", stats.UploadsGenerated),
		logger.Int("uploadsSubmitted", stats.UploadsSubmitted),
		logger.Int("uploadsSuccessful", stats.UploadsSuccessful),
		logger.Int("uploadsBackpressure", stats.UploadsBackpressure),
		logger.Int("uploadsRejected", stats.UploadsRejected),
		logger.Int("uploadsFailed", stats.UploadsFailed),
		logger.Int("audioVerified", stats.AudioVerified),
		logger.Int("audioFailed", stats.AudioFailed),
		logger.Float64("averageAccuracy", stats.AverageAccuracy),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("uploadsPerSecond", uploadsPerSecond))
}
