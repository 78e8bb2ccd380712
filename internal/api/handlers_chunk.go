package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/dgallion1/docchunk/internal/parser"
	"github.com/dgallion1/docchunk/internal/strategy"
)

// handleChunk chunks an upload synchronously and returns the result without
// publishing it.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fhs := r.MultipartForm.File["file"]
	if len(fhs) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	filename, data, err := s.readUpload(fhs[0])
	if err != nil {
		uploadError(w, err)
		return
	}

	src, err := parser.Parse(bytes.NewReader(data), filename, s.deps.ParserOpts)
	if err != nil {
		jsonError(w, "parse: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if title := r.FormValue("title"); title != "" {
		src.Title = title
	}

	res, err := s.deps.Chunker.Run(r.Context(), r.FormValue("doc_id"), *src)
	switch {
	case errors.Is(err, strategy.ErrEmptyInput):
		jsonError(w, "no extractable content", http.StatusUnprocessableEntity)
		return
	case err != nil:
		s.log.Warn("chunking aborted", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
