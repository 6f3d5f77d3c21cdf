package http

import (
	"fmt"
	"net/http"
	"time"

	"envelopes/internal/amortize"
)

func debtCacheKey(id int64) string {
	return fmt.Sprintf("debt:%d", id)
}

func (s *Server) handleDebtSummary(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if summary, ok := s.debtCache.Get(debtCacheKey(id)); ok {
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := s.goals.DebtSummary(r.Context(), id, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.debtCache.Set(debtCacheKey(id), summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDebtSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	env, err := s.envelopes.GetEnvelope(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	months := queryInt(r, "months", 0)
	payment := queryFloat(r, "payment", env.MinimumPayment.Amount())

	schedule := amortize.GenerateSchedule(env.Balance.Amount(), env.APR, payment, months, time.Now())
	writeJSON(w, http.StatusOK, schedule)
}

func (s *Server) handleRequiredPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	env, err := s.envelopes.GetEnvelope(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	months := queryInt(r, "months", 12)
	payment, err := amortize.CalculateRequiredPayment(env.Balance.Amount(), env.APR, months)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"months":           months,
		"required_payment": payment,
	})
}
