package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"envelopes/internal/core"
)

// envelopeResponse is the JSON view of an envelope. Amounts carry both the
// numeric value and a formatted Euro string for display.
type envelopeResponse struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Balance        float64 `json:"balance"`
	BalanceDisplay string  `json:"balance_display"`
	TargetAmount   float64 `json:"target_amount,omitempty"`
	TargetDisplay  string  `json:"target_display,omitempty"`
	TargetDate     string  `json:"target_date,omitempty"`
	APR            float64 `json:"apr,omitempty"`
	MinimumPayment float64 `json:"minimum_payment,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

func envelopeToResponse(e core.Envelope) envelopeResponse {
	resp := envelopeResponse{
		ID:             e.ID,
		Name:           e.Name,
		Type:           string(e.Type),
		Balance:        e.Balance.Amount(),
		BalanceDisplay: core.FormatCents(e.Balance.Cents),
		APR:            e.APR,
		MinimumPayment: e.MinimumPayment.Amount(),
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}
	if e.TargetAmount.Cents > 0 {
		resp.TargetAmount = e.TargetAmount.Amount()
		resp.TargetDisplay = core.FormatCents(e.TargetAmount.Cents)
	}
	if !e.TargetDate.IsEmpty() {
		resp.TargetDate = e.TargetDate.Format("2006-01-02")
	}
	return resp
}

type transactionResponse struct {
	ID            int64   `json:"id"`
	EnvelopeID    int64   `json:"envelope_id"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	AmountDisplay string  `json:"amount_display"`
	Date          string  `json:"date"`
}

func transactionToResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            tx.ID,
		EnvelopeID:    tx.EnvelopeID,
		Type:          string(tx.Type),
		Amount:        tx.Amount.Amount(),
		AmountDisplay: core.FormatCents(tx.Amount.Cents),
		Date:          tx.Date.Format("2006-01-02"),
	}
}

type createEnvelopeRequest struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Balance        string  `json:"balance,omitempty"`
	TargetAmount   string  `json:"target_amount,omitempty"`
	TargetDate     string  `json:"target_date,omitempty"`
	APR            float64 `json:"apr,omitempty"`
	MinimumPayment string  `json:"minimum_payment,omitempty"`
}

func (s *Server) handleCreateEnvelope(w http.ResponseWriter, r *http.Request) {
	var req createEnvelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	env := core.Envelope{
		Name: strings.TrimSpace(req.Name),
		Type: core.EnvelopeType(req.Type),
		APR:  req.APR,
	}

	var err error
	if env.Balance, err = parseOptionalAmount(req.Balance); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid balance: %v", err)})
		return
	}
	if env.TargetAmount, err = parseOptionalAmount(req.TargetAmount); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid target amount: %v", err)})
		return
	}
	if env.MinimumPayment, err = parseOptionalAmount(req.MinimumPayment); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid minimum payment: %v", err)})
		return
	}
	if req.TargetDate != "" {
		if env.TargetDate, err = parseDate(req.TargetDate); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid target date: %v", err)})
			return
		}
	}

	created, err := s.envelopes.CreateEnvelope(r.Context(), env)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelopeToResponse(created))
}

func (s *Server) handleListEnvelopes(w http.ResponseWriter, r *http.Request) {
	var (
		envs []core.Envelope
		err  error
	)

	if t := r.URL.Query().Get("type"); t != "" {
		envs, err = s.envelopes.ListEnvelopesByType(r.Context(), core.EnvelopeType(t))
	} else {
		envs, err = s.envelopes.ListEnvelopes(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]envelopeResponse, len(envs))
	for i, e := range envs {
		out[i] = envelopeToResponse(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEnvelope(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, envelopeToResponse(env))
}

type createTransactionRequest struct {
	Type   string `json:"type"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid amount: %v", err)})
		return
	}

	tx := core.Transaction{
		EnvelopeID: id,
		Type:       core.TransactionType(req.Type),
		Amount:     core.Money{Cents: cents},
		Date:       core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)},
	}
	if req.Date != "" {
		if tx.Date, err = parseDate(req.Date); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid date: %v", err)})
			return
		}
	}

	saved, err := s.envelopes.RecordTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Computed views are stale once the balance moved
	s.invalidateEnvelopeCaches(id)

	writeJSON(w, http.StatusCreated, transactionToResponse(saved))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	txs, err := s.envelopes.ListTransactions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = transactionToResponse(tx)
	}
	writeJSON(w, http.StatusOK, out)
}

func parseOptionalAmount(raw string) (core.Money, error) {
	if strings.TrimSpace(raw) == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseDecimalToCents(raw)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}
