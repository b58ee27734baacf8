package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	app "github.com/okian/parrot/internal/app"
	"github.com/okian/parrot/pkg/logger"
)

const (
	formText     = "text"
	formLanguage = "language"
	formFile     = "file"

	// multipartMemory is how much of a form ParseMultipartForm keeps in
	// memory before spilling file parts to disk.
	multipartMemory = 8 << 20
)

// handleUploadAudio scores one multipart recording upload.
func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		writeServiceError(w, ErrPayloadTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	sub, err := s.readSubmission(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := s.deps.Assess(r.Context(), sub)
	if err != nil {
		if status, _ := classify(err); status >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "upload audio failed", logger.Error(err))
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// readSubmission extracts the form fields. A missing file part yields a nil
// Audio slice so the service can tell "no file" from "empty file".
func (s *Server) readSubmission(r *http.Request) (app.Submission, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return app.Submission{}, fmt.Errorf("%w: %w", ErrPayloadTooLarge, err)
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return app.Submission{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
	}

	sub := app.Submission{
		Text:     r.FormValue(formText),
		Language: r.FormValue(formLanguage),
	}

	file, header, err := r.FormFile(formFile)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// A file part sent without a filename is parsed as a plain value.
		if r.MultipartForm != nil && len(r.MultipartForm.Value[formFile]) > 0 {
			sub.Audio = append([]byte{}, r.MultipartForm.Value[formFile][0]...)
		}
		return sub, nil
	case errors.Is(err, http.ErrNotMultipart):
		return sub, nil
	case err != nil:
		return app.Submission{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return app.Submission{}, fmt.Errorf("%w: read upload: %w", ErrBadRequest, err)
	}
	sub.Filename = header.Filename
	sub.Audio = data
	return sub, nil
}
