// Package coqui provides a Synthesizer backed by a standard Coqui TTS server
// (ghcr.io/coqui-ai/tts-cpu), which answers GET /api/tts with a WAV file.
//
//	p, err := coqui.New("http://localhost:5002",
//	    coqui.WithSpeaker("en", "p225"),
//	    coqui.WithTimeout(15*time.Second),
//	)
//	audio, err := p.Synthesize(ctx, "hello", "en")
package coqui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/parrot/pkg/provider/tts"
)

const (
	defaultTimeout = 30 * time.Second
	apiTTSEndpoint = "/api/tts"
	contentTypeWAV = "audio/wav"
)

var _ tts.Synthesizer = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithSpeaker sets the speaker_id used for a language on multi-speaker models.
func WithSpeaker(lang, speaker string) Option {
	return func(p *Provider) {
		if speaker != "" {
			p.speakers[strings.ToLower(lang)] = speaker
		}
	}
}

// WithoutLanguageID stops sending language_id. Single-language models reject it.
func WithoutLanguageID() Option {
	return func(p *Provider) {
		p.sendLanguage = false
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

// Provider implements tts.Synthesizer.
type Provider struct {
	serverURL    string
	speakers     map[string]string
	sendLanguage bool
	httpClient   *http.Client
}

// New creates a Provider for the Coqui server at serverURL.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:    strings.TrimRight(serverURL, "/"),
		speakers:     make(map[string]string),
		sendLanguage: true,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Synthesize renders text and returns the server's audio unchanged.
func (p *Provider) Synthesize(ctx context.Context, text, lang string) (tts.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return tts.Audio{}, tts.ErrEmptyText
	}

	params := url.Values{}
	params.Set("text", text)
	lang = strings.ToLower(lang)
	if p.sendLanguage && lang != "" {
		params.Set("language_id", lang)
	}
	if speaker, ok := p.speakers[lang]; ok {
		params.Set("speaker_id", speaker)
	}

	reqURL := p.serverURL + apiTTSEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return tts.Audio{}, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", contentTypeWAV)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return tts.Audio{}, fmt.Errorf("coqui: GET %s: %w", apiTTSEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tts.Audio{}, fmt.Errorf("coqui: GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Audio{}, fmt.Errorf("coqui: read audio response: %w", err)
	}
	if len(data) == 0 {
		return tts.Audio{}, fmt.Errorf("coqui: GET %s returned no audio", apiTTSEndpoint)
	}

	return tts.Audio{Data: data, ContentType: contentType(resp.Header.Get("Content-Type"))}, nil
}

func contentType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil || !strings.HasPrefix(mt, "audio/") {
		return contentTypeWAV
	}
	if mt == "audio/x-wav" || mt == "audio/wave" {
		return contentTypeWAV
	}
	return mt
}
