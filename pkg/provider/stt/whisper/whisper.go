// Package whisper provides a Transcriber backed by a whisper.cpp server.
//
// The server exposes POST /inference accepting a multipart form with the WAV
// file and decoding parameters, and answers with {"text": "..."}.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080",
//	    whisper.WithTimeout(60*time.Second),
//	    whisper.WithLanguageModel("ar", "medium"),
//	)
//	text, err := p.Transcribe(ctx, stt.Request{Audio: wav, Language: "ar", Hint: target})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/parrot/pkg/provider/stt"
)

const (
	defaultTimeout = 30 * time.Second
	inferencePath  = "/inference"

	// cap on how much of an error body ends up in an error message
	maxErrorBody = 512
)

var _ stt.Transcriber = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the model name sent when no per-language model applies.
// Empty means whatever the server was started with.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguageModel overrides the model for one language.
func WithLanguageModel(lang, model string) Option {
	return func(p *Provider) {
		if model == "" {
			return
		}
		p.models[strings.ToLower(lang)] = model
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// Provider implements stt.Transcriber over HTTP.
type Provider struct {
	serverURL  string
	model      string
	models     map[string]string
	httpClient *http.Client
}

// New creates a Provider talking to the whisper.cpp server at serverURL.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		models:     make(map[string]string),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe posts req.Audio to the server and returns the trimmed transcript.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", stt.ErrEmptyAudio
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}

	fields := [][2]string{
		{"response_format", "json"},
		{"temperature", strconv.FormatFloat(req.Temperature, 'f', -1, 64)},
	}
	if req.Language != "" {
		fields = append(fields, [2]string{"language", req.Language})
	}
	if req.Hint != "" {
		fields = append(fields, [2]string{"prompt", req.Hint})
	}
	if model := p.modelFor(req.Language); model != "" {
		fields = append(fields, [2]string{"model", model})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("whisper: write %s field: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+inferencePath, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return "", fmt.Errorf("whisper: server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result struct {
		Text  string `json:"text"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("whisper: server error: %s", result.Error)
	}
	return strings.TrimSpace(result.Text), nil
}

func (p *Provider) modelFor(lang string) string {
	if m, ok := p.models[strings.ToLower(lang)]; ok {
		return m
	}
	return p.model
}
