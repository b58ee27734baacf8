package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/parrot/pkg/logger"
)

var validTiers = map[string]bool{
	"unintelligible":    true,
	"excellent":         true,
	"good":              true,
	"needs_improvement": true,
}

// verifyResults checks every successful assessment and downloads the audio
// it links to.
func verifyResults(ctx context.Context, config *Config, results []Result, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "verifying results")

	client := newHTTPClient(config.Timeout)
	var (
		errs     []error
		sum      float64
		assessed int
	)
	for i := range results {
		a := results[i].Assessment
		if a == nil {
			continue
		}
		if err := verifyAssessment(results[i].Upload, a); err != nil {
			errs = append(errs, err)
			continue
		}
		assessed++
		sum += a.Accuracy

		for _, path := range []string{a.RecordingURL, a.CorrectPronunciationURL} {
			if err := verifyAudio(ctx, client, config.BaseURL+path); err != nil {
				stats.AudioFailed++
				if config.Verbose {
					log.Warn(ctx, "audio check failed", logger.String("url", path), logger.Error(err))
				}
				continue
			}
			stats.AudioVerified++
		}
	}
	if assessed > 0 {
		stats.AverageAccuracy = sum / float64(assessed)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info(ctx, "result verification completed",
		logger.Int("audioVerified", stats.AudioVerified),
		logger.Int("audioFailed", stats.AudioFailed))
	return nil
}

// verifyAssessment checks the invariants every assessment must satisfy.
func verifyAssessment(u Upload, a *Assessment) error {
	switch {
	case a.Status != "success":
		return fmt.Errorf("%s: unexpected status %q", u.Filename, a.Status)
	case a.Accuracy < 0 || a.Accuracy > PercentageMultiplier:
		return fmt.Errorf("%s: accuracy %.2f out of range", u.Filename, a.Accuracy)
	case !validTiers[a.Tier]:
		return fmt.Errorf("%s: unknown tier %q", u.Filename, a.Tier)
	case a.Feedback == "":
		return fmt.Errorf("%s: empty feedback", u.Filename)
	case a.TargetText != u.Text:
		return fmt.Errorf("%s: target text %q does not match %q", u.Filename, a.TargetText, u.Text)
	case a.RecordingURL == "" || a.CorrectPronunciationURL == "":
		return fmt.Errorf("%s: missing audio url", u.Filename)
	}
	return nil
}

// verifyAudio fetches url and expects a non-empty 200 response.
func verifyAudio(ctx context.Context, client *HTTPClient, url string) error {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return errors.New("empty body")
	}
	return nil
}
