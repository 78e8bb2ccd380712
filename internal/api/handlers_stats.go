package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil || s.deps.Stats.Stats() == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": s.deps.Stats.Name(),
		"model":    s.deps.Stats.Model(),
		"stats":    s.deps.Stats.Stats().Snapshot(),
	})
}
