package api

import (
	"net/http"

	"github.com/okian/parrot/pkg/logger"
)

// handleGetAudio streams a stored clip. Range and conditional requests are
// handled by http.ServeContent.
func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("filename")
	rc, obj, err := s.deps.OpenAudio(r.Context(), id)
	if err != nil {
		if status, _ := classify(err); status >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "open audio failed", logger.String("id", id), logger.Error(err))
		}
		writeServiceError(w, err)
		return
	}
	defer func() { _ = rc.Close() }()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	http.ServeContent(w, r, obj.ID, obj.CreatedAt, rc)
}
