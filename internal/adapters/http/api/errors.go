package api

import (
	"context"
	"errors"
	"net/http"

	app "github.com/okian/parrot/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrPayloadTooLarge = errors.New("upload too large")
)

// Client-facing messages.
const (
	msgNoText          = "No text provided"
	msgNoFile          = "No file uploaded"
	msgNoFilename      = "No file selected"
	msgInvalidLanguage = "Invalid language"
	msgFileNotFound    = "File not found"
)

// Error codes carried in errorResponse.Code.
const (
	codeBadRequest   = "bad_request"
	codeInvalidLang  = "invalid_language"
	codeInvalidAudio = "invalid_audio"
	codeTooLarge     = "payload_too_large"
	codeNotFound     = "not_found"
	codeBackpressure = "backpressure"
	codeUpstream     = "upstream_error"
	codeTimeout      = "timeout"
	codeInternal     = "internal_error"
)

// classify maps a service error to a status code and error code.
func classify(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, codeTooLarge
	case errors.Is(err, app.ErrMissingText),
		errors.Is(err, app.ErrMissingAudio),
		errors.Is(err, app.ErrMissingFilename),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, app.ErrUnsupportedLanguage):
		return http.StatusBadRequest, codeInvalidLang
	case errors.Is(err, app.ErrInvalidAudio):
		return http.StatusBadRequest, codeInvalidAudio
	case errors.Is(err, app.ErrBackpressure):
		return http.StatusTooManyRequests, codeBackpressure
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout
	case errors.Is(err, app.ErrTranscription), errors.Is(err, app.ErrSynthesis):
		return http.StatusBadGateway, codeUpstream
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// clientMessage is the message shown for err. Validation errors keep
// the wording clients already match on.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrMissingText):
		return msgNoText
	case errors.Is(err, app.ErrMissingAudio):
		return msgNoFile
	case errors.Is(err, app.ErrMissingFilename):
		return msgNoFilename
	case errors.Is(err, app.ErrUnsupportedLanguage):
		return msgInvalidLanguage
	case errors.Is(err, app.ErrNotFound):
		return msgFileNotFound
	default:
		return err.Error()
	}
}

// writeServiceError renders err using classify and clientMessage.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeJSON(w, status, errorResponse{Status: statusError, Code: code, Message: clientMessage(err)})
}
