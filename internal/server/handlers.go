package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	stopCode := strings.TrimSpace(r.PathValue("stopCode"))
	if stopCode == "" {
		http.Error(w, "missing stop code", http.StatusBadRequest)
		return
	}

	data := s.Service.StopDepartures(r.Context(), stopCode)
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"timestamp":         s.now().Format(time.RFC3339),
		"cache_ttl_seconds": int(s.Service.CacheTTL().Seconds()),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.Service.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "cache cleared",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "commutecast-scraper",
		"endpoints": map[string]string{
			"departures":  "/lothian/stop/{stopCode}",
			"health":      "/health",
			"cache_clear": "/cache/clear",
		},
	})
}
