package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/parrot/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// PostUpload sends u as the multipart form POST /upload_audio expects.
func (c *HTTPClient) PostUpload(ctx context.Context, url string, u Upload) (*http.Response, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("text", u.Text); err != nil {
		return nil, fmt.Errorf("failed to write text field: %w", err)
	}
	if err := mw.WriteField("language", u.Language); err != nil {
		return nil, fmt.Errorf("failed to write language field: %w", err)
	}
	part, err := mw.CreateFormFile("file", u.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(u.Audio); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// submitUploads posts uploads concurrently and returns one Result per upload
// in input order.
func submitUploads(ctx context.Context, config *Config, uploads []Upload, stats *Stats) []Result {
	log := logger.Get()
	log.Info(ctx, "submitting uploads", logger.Int("count", len(uploads)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/upload_audio"
	results := make([]Result, len(uploads))

	var (
		submitted  int64
		successful int64
		lastReport atomic.Int64
	)
	lastReport.Store(time.Now().UnixNano())

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexChan {
				if ctx.Err() != nil {
					results[index] = Result{Upload: uploads[index], Outcome: OutcomeFailed, Error: ctx.Err().Error()}
					continue
				}
				res := submitSingleUpload(ctx, client, url, uploads[index])
				results[index] = res

				total := atomic.AddInt64(&submitted, 1)
				if res.Outcome == OutcomeSuccess {
					atomic.AddInt64(&successful, 1)
				} else if config.Verbose {
					log.Warn(ctx, "upload not assessed",
						logger.String("file", res.Upload.Filename),
						logger.String("outcome", string(res.Outcome)),
						logger.Int("status", res.StatusCode),
						logger.String("error", res.Error))
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if time.Duration(now-last) >= ProgressInterval && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int64("submitted", total),
						logger.Int("total", len(uploads)),
						logger.Int64("successful", atomic.LoadInt64(&successful)))
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range uploads {
			indexChan <- i
		}
	}()

	wg.Wait()

	for _, r := range results {
		stats.UploadsSubmitted++
		switch r.Outcome {
		case OutcomeSuccess:
			stats.UploadsSuccessful++
		case OutcomeBackpressure:
			stats.UploadsBackpressure++
		case OutcomeRejected:
			stats.UploadsRejected++
		default:
			stats.UploadsFailed++
		}
	}

	log.Info(ctx, "upload submission completed",
		logger.Int("successful", stats.UploadsSuccessful),
		logger.Int("backpressure", stats.UploadsBackpressure),
		logger.Int("rejected", stats.UploadsRejected),
		logger.Int("failed", stats.UploadsFailed))
	return results
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// submitSingleUpload posts one upload and classifies the response.
func submitSingleUpload(ctx context.Context, client *HTTPClient, url string, u Upload) Result {
	res := Result{Upload: u}
	start := time.Now()
	resp, err := client.PostUpload(ctx, url, u)
	res.Latency = time.Since(start)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}
	res.StatusCode = resp.StatusCode

	body, err := readResponseBody(resp)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var a Assessment
		if err := json.Unmarshal(body, &a); err != nil {
			res.Outcome = OutcomeFailed
			res.Error = "malformed assessment: " + err.Error()
			return res
		}
		res.Outcome = OutcomeSuccess
		res.Assessment = &a
	case resp.StatusCode == http.StatusTooManyRequests:
		res.Outcome = OutcomeBackpressure
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		res.Outcome = OutcomeRejected
	default:
		res.Outcome = OutcomeFailed
	}
	if res.Outcome != OutcomeSuccess {
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			res.Error = eb.Message
		}
	}
	return res
}
