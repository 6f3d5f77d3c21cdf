package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func overviewCacheKey(id int64) string {
	return fmt.Sprintf("goal:%d", id)
}

// invalidateEnvelopeCaches drops cached views after a write to the envelope.
func (s *Server) invalidateEnvelopeCaches(id int64) {
	s.overviewCache.Delete(overviewCacheKey(id))
	s.debtCache.Delete(debtCacheKey(id))
}

func (s *Server) handleGoalOverview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if overview, ok := s.overviewCache.Get(overviewCacheKey(id)); ok {
		writeJSON(w, http.StatusOK, overview)
		return
	}

	overview, err := s.goals.GoalOverview(r.Context(), id, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.overviewCache.Set(overviewCacheKey(id), overview)
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleGoalProjection(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	monthly := queryFloat(r, "monthly", 0)
	projection, err := s.goals.Projection(r.Context(), id, monthly, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, projection)
}

type whatIfRequest struct {
	Contributions []float64 `json:"contributions"`
}

func (s *Server) handleWhatIf(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req whatIfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if len(req.Contributions) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "contributions list cannot be empty"})
		return
	}

	scenarios, err := s.goals.WhatIf(r.Context(), id, req.Contributions, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, scenarios)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	forecast, err := s.goals.Forecast(r.Context(), id, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, forecast)
}
