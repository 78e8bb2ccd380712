package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docchunk/internal/pathstore"
)

// handleDocumentChunks lists the published chunks of a document.
func (s *Server) handleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		jsonError(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	chunks, err := s.deps.Documents.ListChunks(r.Context(), userID, docID)
	if err != nil {
		jsonError(w, "failed to list chunks: "+err.Error(), http.StatusBadGateway)
		return
	}
	if len(chunks) == 0 {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "chunks": chunks})
}

// handleDeleteDocument deletes a document, its chunks and its hash index entry.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		jsonError(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	err := s.deps.Documents.DeleteDocument(r.Context(), userID, docID)
	switch {
	case errors.Is(err, pathstore.ErrNotFound):
		jsonError(w, "document not found", http.StatusNotFound)
	case err != nil:
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
	}
}
