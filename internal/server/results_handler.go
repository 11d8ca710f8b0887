package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adverant/nexus/ocrsum/internal/analytics"
	"github.com/adverant/nexus/ocrsum/internal/errors"
)

type updateTextRequest struct {
	Text *string `json:"text"`
}

type replaceRequest struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

// AnalyticsResponse is the body of GET /api/results/{id}/analytics.
type AnalyticsResponse struct {
	ID              string          `json:"id"`
	Stats           analytics.Stats `json:"stats"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLabel string          `json:"confidenceLabel"`
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.history.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.history.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUpdateText(w http.ResponseWriter, r *http.Request) {
	var req updateTextRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 5<<20)).Decode(&req); err != nil || req.Text == nil {
		writeError(w, errors.NewValidationError("text is required"))
		return
	}

	result, err := s.history.UpdateText(r.Context(), mux.Vars(r)["id"], *req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("invalid JSON body: "+err.Error()))
		return
	}

	id := mux.Vars(r)["id"]
	current, err := s.history.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	text, err := analytics.FindReplace(current.Text, req.Search, req.Replace)
	if err != nil {
		writeError(w, err)
		return
	}
	if text == current.Text {
		writeJSON(w, http.StatusOK, current)
		return
	}

	result, err := s.history.UpdateText(r.Context(), id, text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	result, err := s.history.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyticsResponse{
		ID:              result.ID,
		Stats:           analytics.Compute(result.Text),
		Confidence:      result.Confidence,
		ConfidenceLabel: analytics.ConfidenceLabel(result.Confidence),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	result, err := s.history.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "ocr-result-"+result.ID+".txt"))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(result.Text))
}
