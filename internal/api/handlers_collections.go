package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleEnsureCollection(w http.ResponseWriter, r *http.Request) {
	if s.collections == nil {
		jsonError(w, "vector store not configured", http.StatusServiceUnavailable)
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.collections.EnsureCollection(r.Context(), name); err != nil {
		s.log.Error("ensure collection failed", "collection", name, "error", err)
		jsonError(w, "failed to create collection: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"collection": name, "status": "ready"})
}

// handleDeleteCollection drops a collection and every object in it.
func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	if s.collections == nil {
		jsonError(w, "vector store not configured", http.StatusServiceUnavailable)
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.collections.DeleteCollection(r.Context(), name); err != nil {
		s.log.Error("delete collection failed", "collection", name, "error", err)
		jsonError(w, "failed to delete collection: "+err.Error(), http.StatusBadGateway)
		return
	}
	s.log.Info("collection deleted", "collection", name)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"collection": name, "deleted": true})
}
