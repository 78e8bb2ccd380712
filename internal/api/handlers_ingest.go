package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docchunk/internal/parser"
	"github.com/dgallion1/docchunk/internal/pipeline"
)

// errUpload is a client-side upload problem; its message is safe to return.
type errUpload struct {
	msg  string
	code int
}

func (e *errUpload) Error() string { return e.msg }

// readUpload reads one multipart file, checking its extension and size.
func (s *Server) readUpload(fh *multipart.FileHeader) (string, []byte, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return filename, nil, &errUpload{fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest}
	}
	f, err := fh.Open()
	if err != nil {
		return filename, nil, &errUpload{"failed to open file", http.StatusBadRequest}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return filename, nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return filename, nil, &errUpload{fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge}
	}
	return filename, data, nil
}

func uploadError(w http.ResponseWriter, err error) {
	var ue *errUpload
	if errors.As(err, &ue) {
		jsonError(w, ue.msg, ue.code)
		return
	}
	jsonError(w, "failed to read file", http.StatusInternalServerError)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID := r.FormValue("user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}
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

	job := pipeline.NewJob(userID, r.FormValue("doc_id"), filename, r.FormValue("title"), data)
	job.Force = r.FormValue("force") == "true"
	if err := s.deps.Pipeline.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, jobAccepted(job))
}

func jobAccepted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"filename": snap.Filename,
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/ingest/%s/status", snap.ID),
	}
}

func (s *Server) handleBatchIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID := r.FormValue("user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	force := r.FormValue("force") == "true"

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename, data, err := s.readUpload(fh)
		if err != nil {
			results = append(results, map[string]any{"filename": filename, "error": err.Error()})
			continue
		}
		job := pipeline.NewJob(userID, "", filename, "", data)
		job.Force = force
		if err := s.deps.Pipeline.Submit(job); err != nil {
			results = append(results, map[string]any{"filename": filename, "error": err.Error()})
			continue
		}
		results = append(results, jobAccepted(job))
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	job := s.deps.Pipeline.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"progress": snap.Progress,
	})
}

// handleIngestResult returns the ChunkingResult of a job. A job still in
// flight answers 202 with its status; a job that ended without a result 409.
func (s *Server) handleIngestResult(w http.ResponseWriter, r *http.Request) {
	job := s.deps.Pipeline.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if res := job.Result(); res != nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	snap := job.Snapshot()
	if snap.Status.Terminal() {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "job finished without a result",
			"status": snap.Status,
			"errors": snap.Progress.Errors,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": snap.ID, "status": snap.Status})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
