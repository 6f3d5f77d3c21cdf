package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"envelopes/internal/cache"
	"envelopes/internal/services"
	"envelopes/internal/storage"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "envelopes.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	envelopeSvc := services.NewEnvelopeService(repo, nil)
	goalSvc := services.NewGoalService(repo, cache.NewMemoryCache(), nil)

	srv := NewServer(":0", envelopeSvc, goalSvc)
	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.cacheManager.Stop()
		srv.rateLimiter.stop()
	})
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createEnvelope(t *testing.T, baseURL string, req map[string]any) int64 {
	t.Helper()
	resp := postJSON(t, baseURL+"/api/envelopes", req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create envelope status = %d", resp.StatusCode)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &created)
	return created.ID
}

func TestServer_EnvelopeLifecycle(t *testing.T) {
	ts := testServer(t)

	id := createEnvelope(t, ts.URL, map[string]any{
		"name":    "Groceries",
		"type":    "regular",
		"balance": "150,00",
	})

	resp, err := http.Get(fmt.Sprintf("%s/api/envelopes/%d", ts.URL, id))
	if err != nil {
		t.Fatalf("GET envelope: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get envelope status = %d", resp.StatusCode)
	}
	var env struct {
		Name           string  `json:"name"`
		Balance        float64 `json:"balance"`
		BalanceDisplay string  `json:"balance_display"`
	}
	decodeBody(t, resp, &env)
	if env.Name != "Groceries" || env.Balance != 150 {
		t.Errorf("envelope = %+v, want Groceries with balance 150", env)
	}
	if env.BalanceDisplay != "€150,00" {
		t.Errorf("BalanceDisplay = %q, want €150,00", env.BalanceDisplay)
	}

	// An expense moves the balance down.
	resp = postJSON(t, fmt.Sprintf("%s/api/envelopes/%d/transactions", ts.URL, id), map[string]any{
		"type":   "expense",
		"amount": "30.50",
		"date":   "2024-06-15",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create transaction status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(fmt.Sprintf("%s/api/envelopes/%d", ts.URL, id))
	if err != nil {
		t.Fatalf("GET envelope: %v", err)
	}
	decodeBody(t, resp, &env)
	if env.Balance != 119.5 {
		t.Errorf("balance after expense = %v, want 119.5", env.Balance)
	}

	resp, err = http.Get(fmt.Sprintf("%s/api/envelopes/%d/transactions", ts.URL, id))
	if err != nil {
		t.Fatalf("GET transactions: %v", err)
	}
	var txs []struct {
		Type string `json:"type"`
		Date string `json:"date"`
	}
	decodeBody(t, resp, &txs)
	if len(txs) != 1 || txs[0].Type != "expense" || txs[0].Date != "2024-06-15" {
		t.Errorf("transactions = %+v, want one expense on 2024-06-15", txs)
	}
}

func TestServer_EnvelopeValidation(t *testing.T) {
	ts := testServer(t)

	tests := []struct {
		name string
		req  map[string]any
	}{
		{name: "empty name", req: map[string]any{"name": "", "type": "regular"}},
		{name: "unknown type", req: map[string]any{"name": "X", "type": "checking"}},
		{name: "negative balance", req: map[string]any{"name": "X", "type": "regular", "balance": "-5,00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/envelopes", tt.req)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}

	resp, err := http.Get(ts.URL + "/api/envelopes/9999")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing envelope status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/envelopes/abc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_GoalEndpoints(t *testing.T) {
	ts := testServer(t)

	goalID := createEnvelope(t, ts.URL, map[string]any{
		"name":          "Vacation",
		"type":          "savings",
		"balance":       "600,00",
		"target_amount": "1000,00",
		"target_date":   time.Now().AddDate(2, 0, 0).Format("2006-01-02"),
	})
	regularID := createEnvelope(t, ts.URL, map[string]any{
		"name": "Groceries",
		"type": "regular",
	})

	resp, err := http.Get(fmt.Sprintf("%s/api/envelopes/%d/progress", ts.URL, goalID))
	if err != nil {
		t.Fatalf("GET progress: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("progress status = %d", resp.StatusCode)
	}
	var overview struct {
		Progress struct {
			ProgressPercentage float64 `json:"progress_percentage"`
		} `json:"progress"`
		Milestones []struct {
			Reached bool `json:"reached"`
		} `json:"milestones"`
		StatusColor string `json:"status_color"`
	}
	decodeBody(t, resp, &overview)
	if overview.Progress.ProgressPercentage != 60 {
		t.Errorf("progress = %v, want 60", overview.Progress.ProgressPercentage)
	}
	if len(overview.Milestones) != 4 {
		t.Errorf("milestones = %d, want 4", len(overview.Milestones))
	}
	if overview.StatusColor == "" {
		t.Error("status color missing")
	}

	// Cached views must refresh after a write to the envelope.
	resp = postJSON(t, fmt.Sprintf("%s/api/envelopes/%d/transactions", ts.URL, goalID), map[string]any{
		"type":   "allocation",
		"amount": "200,00",
	})
	resp.Body.Close()

	resp, err = http.Get(fmt.Sprintf("%s/api/envelopes/%d/progress", ts.URL, goalID))
	if err != nil {
		t.Fatalf("GET progress: %v", err)
	}
	decodeBody(t, resp, &overview)
	if overview.Progress.ProgressPercentage != 80 {
		t.Errorf("progress after allocation = %v, want 80", overview.Progress.ProgressPercentage)
	}

	// Goal analytics reject non-savings envelopes.
	for _, path := range []string{"progress", "projection", "forecast"} {
		resp, err := http.Get(fmt.Sprintf("%s/api/envelopes/%d/%s", ts.URL, regularID, path))
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s on regular envelope = %d, want 400", path, resp.StatusCode)
		}
	}

	resp = postJSON(t, fmt.Sprintf("%s/api/envelopes/%d/what-if", ts.URL, goalID), map[string]any{
		"contributions": []float64{50, 100},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("what-if status = %d", resp.StatusCode)
	}
	var scenarios []struct {
		Reachable bool `json:"reachable"`
	}
	decodeBody(t, resp, &scenarios)
	if len(scenarios) != 2 {
		t.Errorf("scenarios = %d, want 2", len(scenarios))
	}

	resp = postJSON(t, fmt.Sprintf("%s/api/envelopes/%d/what-if", ts.URL, goalID), map[string]any{
		"contributions": []float64{},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty what-if status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_DebtEndpoints(t *testing.T) {
	ts := testServer(t)

	debtID := createEnvelope(t, ts.URL, map[string]any{
		"name":            "Credit Card",
		"type":            "debt",
		"balance":         "5000,00",
		"apr":             18.0,
		"minimum_payment": "200,00",
	})

	resp, err := http.Get(fmt.Sprintf("%s/api/envelopes/%d/debt", ts.URL, debtID))
	if err != nil {
		t.Fatalf("GET debt: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("debt status = %d", resp.StatusCode)
	}
	var summary struct {
		Projection struct {
			Reachable      bool `json:"reachable"`
			MonthsToPayoff int  `json:"months_to_payoff"`
		} `json:"projection"`
		Strategies []struct {
			Name string `json:"name"`
		} `json:"strategies"`
	}
	decodeBody(t, resp, &summary)
	if !summary.Projection.Reachable || summary.Projection.MonthsToPayoff == 0 {
		t.Errorf("projection = %+v, want a reachable payoff", summary.Projection)
	}
	if len(summary.Strategies) == 0 {
		t.Error("expected payoff strategies")
	}

	resp, err = http.Get(fmt.Sprintf("%s/api/envelopes/%d/debt/schedule?months=12", ts.URL, debtID))
	if err != nil {
		t.Fatalf("GET schedule: %v", err)
	}
	var schedule []struct {
		PaymentNumber int `json:"payment_number"`
	}
	decodeBody(t, resp, &schedule)
	if len(schedule) != 12 {
		t.Errorf("schedule entries = %d, want 12", len(schedule))
	}

	resp, err = http.Get(fmt.Sprintf("%s/api/envelopes/%d/debt/required-payment?months=24", ts.URL, debtID))
	if err != nil {
		t.Fatalf("GET required payment: %v", err)
	}
	var required struct {
		Months          int     `json:"months"`
		RequiredPayment float64 `json:"required_payment"`
	}
	decodeBody(t, resp, &required)
	if required.Months != 24 || required.RequiredPayment <= 5000.0/24 {
		t.Errorf("required payment = %+v, want 24 months above the zero-rate floor", required)
	}
}

func TestServer_Health(t *testing.T) {
	ts := testServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?monthly=25.5&months=12&bad=abc", nil)

	if got := queryFloat(r, "monthly", 0); got != 25.5 {
		t.Errorf("queryFloat = %v, want 25.5", got)
	}
	if got := queryFloat(r, "missing", 7); got != 7 {
		t.Errorf("queryFloat default = %v, want 7", got)
	}
	if got := queryFloat(r, "bad", 7); got != 7 {
		t.Errorf("queryFloat invalid = %v, want default 7", got)
	}
	if got := queryInt(r, "months", 0); got != 12 {
		t.Errorf("queryInt = %d, want 12", got)
	}
	if got := queryInt(r, "bad", 3); got != 3 {
		t.Errorf("queryInt invalid = %d, want default 3", got)
	}
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "valid", raw: "42", want: 42},
		{name: "zero", raw: "0", wantErr: true},
		{name: "negative", raw: "-1", wantErr: true},
		{name: "not a number", raw: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/envelopes/"+tt.raw, nil)
			r.SetPathValue("id", tt.raw)

			got, err := parseIDParam(r)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseIDParam = %d, want %d", got, tt.want)
			}
		})
	}
}
