package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okian/parrot/internal/domain/types"
)

type languagesResponse struct {
	Status    string               `json:"status"`
	Languages []types.LanguageInfo `json:"languages"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, languagesResponse{Status: statusSuccess, Languages: s.deps.Languages()})
}

type setLanguageRequest struct {
	Language *string `json:"language"`
}

type setLanguageResponse struct {
	Status   string `json:"status"`
	Language string `json:"language"`
}

const maxLanguageBody = 4 << 10

// handleSetLanguage validates a language choice. It keeps no server-side
// state; clients send the language with every upload.
func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	var req setLanguageRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxLanguageBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeBadRequest, errors.New("invalid JSON body"))
		return
	}

	lang := "en"
	if req.Language != nil {
		lang = strings.ToLower(strings.TrimSpace(*req.Language))
	}
	if !s.deps.SupportsLanguage(lang) {
		writeError(w, http.StatusBadRequest, codeInvalidLang, errors.New(msgInvalidLanguage))
		return
	}
	writeJSON(w, http.StatusOK, setLanguageResponse{Status: statusSuccess, Language: lang})
}
